package refund

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/store"
)

// ErrAlreadyRefunded indicates the transaction has no refundable quantity left.
var ErrAlreadyRefunded = errors.New("transaction already refunded")

// ErrMissingReason indicates the refund was confirmed without a reason.
var ErrMissingReason = errors.New("refund reason required")

// ErrNothingSelected indicates no line has a positive refund quantity.
var ErrNothingSelected = errors.New("no items selected for refund")

// Service orchestrates the refund flow: locate a past sale, bound the
// candidate, persist the adjustment, restore stock.
type Service struct {
	Store  store.Repository
	Events *events.Bus
	Log    zerolog.Logger

	// Optional counters; nil disables them.
	RefundsCompleted prometheus.Counter
	RefundedAmount   prometheus.Counter
}

// Lookup finds a transaction by its human-facing receipt id and seeds a
// refund review from it. Transactions with nothing left to refund fail with
// ErrAlreadyRefunded.
func (s *Service) Lookup(ctx context.Context, receiptID string) (*Review, error) {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return nil, store.ErrNotFound
	}
	tx, err := s.Store.GetTransactionByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if tx.Refunded || tx.FullyRefunded() {
		return nil, ErrAlreadyRefunded
	}
	return NewReview(tx), nil
}

// Execute persists the reviewed refund. The refund record and the per-item
// refunded-quantity bump are written atomically first; stock restoration then
// runs per item, best effort, with failures surfaced as warnings rather than
// rollbacks. The original transaction is flagged refunded only once no
// refundable quantity remains on any line.
func (s *Service) Execute(ctx context.Context, review *Review, reason string) (store.Refund, []string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return store.Refund{}, nil, ErrMissingReason
	}
	selected := review.Selected()
	if len(selected) == 0 {
		return store.Refund{}, nil, ErrNothingSelected
	}

	refund := store.Refund{
		TransactionID: review.Transaction.ID,
		ReceiptID:     review.Transaction.ReceiptID,
		Reason:        reason,
		Amount:        review.Amount(),
	}
	for _, it := range selected {
		refund.Items = append(refund.Items, store.RefundItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			UnitPrice:     it.UnitPrice,
			Qty:           it.Qty,
			ReturnToStock: it.ReturnToStock,
		})
	}

	persisted, err := s.Store.CreateRefund(ctx, refund)
	if err != nil {
		return store.Refund{}, nil, fmt.Errorf("persist refund: %w", err)
	}

	var warnings []string
	for _, it := range persisted.Items {
		if !it.ReturnToStock {
			continue
		}
		if _, err := s.Store.AdjustProductStock(ctx, it.ProductID, it.Qty); err != nil {
			s.Log.Error().Err(err).
				Str("productId", it.ProductID.String()).
				Int32("qty", it.Qty).
				Msg("stock restore failed")
			warnings = append(warnings, fmt.Sprintf("stock restore failed for %s", it.Name))
		}
	}

	tx, err := s.Store.GetTransactionByReceiptID(ctx, persisted.ReceiptID)
	switch {
	case err != nil:
		s.Log.Error().Err(err).Str("receiptId", persisted.ReceiptID).Msg("refund status re-read failed")
		warnings = append(warnings, "could not verify remaining refundable quantity")
	case tx.FullyRefunded():
		if err := s.Store.MarkTransactionRefunded(ctx, tx.ID); err != nil {
			s.Log.Error().Err(err).Str("receiptId", tx.ReceiptID).Msg("refunded flag update failed")
			warnings = append(warnings, "transaction could not be marked refunded")
		}
	}

	if s.RefundsCompleted != nil {
		s.RefundsCompleted.Inc()
	}
	if s.RefundedAmount != nil {
		s.RefundedAmount.Add(float64(persisted.Amount))
	}
	s.Events.Publish(ctx, events.TopicRefundCompleted, persisted.TransactionID, map[string]any{
		"refundId":  persisted.ID,
		"receiptId": persisted.ReceiptID,
		"amount":    persisted.Amount,
		"items":     len(persisted.Items),
	})
	return persisted, warnings, nil
}
