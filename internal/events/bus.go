package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/store"
)

// Topics published by the transaction core.
const (
	TopicTransactionCompleted = "transaction.completed"
	TopicRefundCompleted      = "refund.completed"
	TopicStockLow             = "stock.low"
)

// Notifier consumes persisted events. Implementations must not block for
// long; the bus fans out synchronously on the publishing request.
type Notifier interface {
	Notify(ctx context.Context, evt store.Event)
}

// Bus persists domain events and fans them out to subscribers. Publishing is
// best effort: a failed insert is logged, never propagated, so the sale or
// refund that triggered it is unaffected.
type Bus struct {
	Store     store.Repository
	Log       zerolog.Logger
	notifiers []Notifier
}

// NewBus builds a bus over the given repository.
func NewBus(repo store.Repository, log zerolog.Logger) *Bus {
	return &Bus{Store: repo, Log: log}
}

// Subscribe registers a notifier. Not safe to call after Publish starts.
func (b *Bus) Subscribe(n Notifier) {
	b.notifiers = append(b.notifiers, n)
}

// Publish marshals the payload, persists the event, and notifies subscribers.
func (b *Bus) Publish(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if b == nil || b.Store == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.Log.Error().Err(err).Str("topic", topic).Msg("event payload marshal failed")
		return
	}
	evt, err := b.Store.InsertEvent(ctx, store.Event{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     data,
	})
	if err != nil {
		b.Log.Error().Err(err).Str("topic", topic).Msg("event insert failed")
		return
	}
	for _, n := range b.notifiers {
		n.Notify(ctx, evt)
	}
}
