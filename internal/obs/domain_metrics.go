package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout outcomes by payment method and result.
	CheckoutTotal *prometheus.CounterVec
	// SalesAmount accumulates completed sale totals in minor currency units.
	SalesAmount prometheus.Counter
	// RefundTotal counts completed refunds.
	RefundTotal prometheus.Counter
	// RefundAmount accumulates refunded totals in minor currency units.
	RefundAmount prometheus.Counter
	// StockAdjustFailures counts stock writes that failed after a persisted sale or refund.
	StockAdjustFailures prometheus.Counter
	// LowStockAlerts counts low-stock notifications emitted.
	LowStockAlerts prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout outcomes.",
		}, []string{"method", "result"})
		SalesAmount = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_amount_minor_units_total",
			Help:      "Sum of completed sale totals in minor currency units.",
		})
		RefundTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_total",
			Help:      "Count of completed refunds.",
		})
		RefundAmount = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_amount_minor_units_total",
			Help:      "Sum of refunded totals in minor currency units.",
		})
		StockAdjustFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjust_failures_total",
			Help:      "Stock writes that failed after a persisted sale or refund.",
		})
		LowStockAlerts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Low-stock notifications emitted.",
		})

		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, SalesAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SalesAmount = v
			}
		})
		mustRegisterCollector(reg, RefundTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RefundTotal = v
			}
		})
		mustRegisterCollector(reg, RefundAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RefundAmount = v
			}
		})
		mustRegisterCollector(reg, StockAdjustFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockAdjustFailures = v
			}
		})
		mustRegisterCollector(reg, LowStockAlerts, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LowStockAlerts = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
