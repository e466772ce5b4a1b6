package events

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/store"
)

// LowStockAlerter reacts to stock.low events: it logs a warning, bumps the
// alert counter, and optionally POSTs the event payload to a webhook so the
// back office can reorder.
type LowStockAlerter struct {
	Log        zerolog.Logger
	WebhookURL string
	Client     *http.Client
	Alerts     prometheus.Counter
}

func (a *LowStockAlerter) Notify(ctx context.Context, evt store.Event) {
	if evt.Topic != TopicStockLow {
		return
	}
	a.Log.Warn().
		Str("productId", evt.AggregateID.String()).
		RawJSON("payload", evt.Payload).
		Msg("low stock")
	if a.Alerts != nil {
		a.Alerts.Inc()
	}
	if a.WebhookURL == "" {
		return
	}

	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.WebhookURL, bytes.NewReader(evt.Payload))
	if err != nil {
		a.Log.Error().Err(err).Msg("low stock webhook request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		a.Log.Error().Err(err).Str("url", a.WebhookURL).Msg("low stock webhook delivery failed")
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		a.Log.Error().Int("status", resp.StatusCode).Str("url", a.WebhookURL).Msg("low stock webhook rejected")
	}
}
