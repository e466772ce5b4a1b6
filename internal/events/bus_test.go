package events_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/store/memory"
)

type recorder struct {
	seen []store.Event
}

func (r *recorder) Notify(_ context.Context, evt store.Event) {
	r.seen = append(r.seen, evt)
}

func TestPublishPersistsAndFansOut(t *testing.T) {
	repo := memory.New()
	bus := events.NewBus(repo, zerolog.Nop())
	rec := &recorder{}
	bus.Subscribe(rec)

	aggregate := uuid.New()
	bus.Publish(context.Background(), events.TopicTransactionCompleted, aggregate, map[string]any{"total": 2160})

	persisted := repo.Events()
	require.Len(t, persisted, 1)
	require.Equal(t, events.TopicTransactionCompleted, persisted[0].Topic)
	require.Equal(t, aggregate, persisted[0].AggregateID)
	require.JSONEq(t, `{"total":2160}`, string(persisted[0].Payload))

	require.Len(t, rec.seen, 1)
	require.Equal(t, persisted[0].ID, rec.seen[0].ID)
}

func TestPublishOnNilBusIsSafe(t *testing.T) {
	var bus *events.Bus
	bus.Publish(context.Background(), events.TopicStockLow, uuid.New(), nil)
}
