package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
)

// Payment methods accepted at the terminal.
const (
	MethodCash = "cash"
	MethodCard = "card"
)

// ErrEmptyCart indicates checkout was attempted on a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInsufficientPayment indicates a cash payment below the total.
var ErrInsufficientPayment = errors.New("payment amount below total")

// ErrPaymentMethodDisabled indicates the method is unknown or switched off in settings.
var ErrPaymentMethodDisabled = errors.New("payment method not available")

// Payment is the tendered payment for a checkout.
type Payment struct {
	Method string        `json:"method"`
	Amount pricing.Money `json:"amount"`
}

// Service runs the checkout sequence: validate, persist the transaction,
// decrement stock, clear the cart.
type Service struct {
	Store  store.Repository
	Events *events.Bus
	Log    zerolog.Logger
	Now    func() time.Time

	// Optional collectors; nil disables them.
	CheckoutOutcomes    *prometheus.CounterVec
	SalesAmount         prometheus.Counter
	StockAdjustFailures prometheus.Counter
}

func (s *Service) countOutcome(method, result string) {
	if s.CheckoutOutcomes != nil {
		s.CheckoutOutcomes.WithLabelValues(method, result).Inc()
	}
}

const receiptMintAttempts = 5

// Checkout validates the cart and payment against the given settings
// snapshot, persists the transaction, and commits stock decrements. All
// validation runs before any persistence call, so a rejected checkout leaves
// zero mutation and the cart intact. Stock decrements after a persisted
// transaction are per-line best effort; failures come back as warnings.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, settings store.Settings, pay Payment) (store.Transaction, []string, error) {
	if c.Empty() {
		return store.Transaction{}, nil, ErrEmptyCart
	}
	switch pay.Method {
	case MethodCash:
		if !settings.CashEnabled {
			return store.Transaction{}, nil, ErrPaymentMethodDisabled
		}
	case MethodCard:
		if !settings.CardEnabled {
			return store.Transaction{}, nil, ErrPaymentMethodDisabled
		}
	default:
		return store.Transaction{}, nil, ErrPaymentMethodDisabled
	}

	discount := c.Discount()
	if err := pricing.ValidateDiscount(discount, c.Subtotal()); err != nil {
		return store.Transaction{}, nil, err
	}

	quote := pricing.Compute(c.PricingLines(), discount, pricing.Tax{
		Mode:    settings.TaxMode,
		RateBps: settings.TaxRateBps,
		Name:    settings.TaxName,
	})
	if pay.Method == MethodCard {
		// Card charges exactly the total; no change flow.
		pay.Amount = quote.Total
	}
	if pay.Amount < quote.Total {
		s.countOutcome(pay.Method, "rejected")
		return store.Transaction{}, nil, ErrInsufficientPayment
	}

	tx := store.Transaction{
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.Discount,
		DiscountType:   discount.Kind,
		TaxAmount:      quote.Tax,
		TaxMode:        settings.TaxMode,
		TaxRateBps:     settings.TaxRateBps,
		TaxName:        settings.TaxName,
		Total:          quote.Total,
		PaymentMethod:  pay.Method,
		PaymentAmount:  pay.Amount,
		Change:         pricing.Change(pay.Amount, quote.Total),
	}
	for _, ln := range c.Lines() {
		tx.Items = append(tx.Items, store.TransactionItem{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			UnitPrice: ln.UnitPrice,
			Qty:       ln.Qty,
		})
	}

	persisted, err := s.persistWithFreshReceiptID(ctx, tx)
	if err != nil {
		s.countOutcome(pay.Method, "persist_failed")
		return store.Transaction{}, nil, fmt.Errorf("persist transaction: %w", err)
	}

	var warnings []string
	for _, it := range persisted.Items {
		stock, err := s.Store.AdjustProductStock(ctx, it.ProductID, -it.Qty)
		if err != nil {
			s.Log.Error().Err(err).
				Str("receiptId", persisted.ReceiptID).
				Str("productId", it.ProductID.String()).
				Int32("qty", it.Qty).
				Msg("stock decrement failed")
			if s.StockAdjustFailures != nil {
				s.StockAdjustFailures.Inc()
			}
			warnings = append(warnings, fmt.Sprintf("stock update failed for %s", it.Name))
			continue
		}
		if stock <= settings.LowStockThreshold {
			s.Events.Publish(ctx, events.TopicStockLow, it.ProductID, map[string]any{
				"productId": it.ProductID,
				"name":      it.Name,
				"stock":     stock,
				"threshold": settings.LowStockThreshold,
			})
		}
	}

	c.Clear()

	s.countOutcome(pay.Method, "completed")
	if s.SalesAmount != nil {
		s.SalesAmount.Add(float64(persisted.Total))
	}
	s.Events.Publish(ctx, events.TopicTransactionCompleted, persisted.ID, map[string]any{
		"receiptId":     persisted.ReceiptID,
		"total":         persisted.Total,
		"paymentMethod": persisted.PaymentMethod,
		"items":         len(persisted.Items),
	})
	return persisted, warnings, nil
}

// persistWithFreshReceiptID mints a receipt id and retries on the rare
// same-day collision.
func (s *Service) persistWithFreshReceiptID(ctx context.Context, tx store.Transaction) (store.Transaction, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	var lastErr error
	for range receiptMintAttempts {
		tx.ReceiptID = mintReceiptID(now())
		persisted, err := s.Store.CreateTransaction(ctx, tx)
		if err == nil {
			return persisted, nil
		}
		if !errors.Is(err, store.ErrDuplicateReceipt) {
			return store.Transaction{}, err
		}
		lastErr = err
	}
	return store.Transaction{}, lastErr
}

// mintReceiptID produces the human-facing id printed on receipts,
// e.g. POS-20260901-004217.
func mintReceiptID(now time.Time) string {
	return fmt.Sprintf("POS-%s-%06d", now.UTC().Format("20060102"), rand.IntN(1_000_000))
}
