package settings_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/settings"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/store/memory"
)

func TestGetReturnsStoredSettings(t *testing.T) {
	repo := memory.New()
	repo.SetSettings(store.Settings{Currency: "EUR", TaxMode: "included", TaxRateBps: 1900, CashEnabled: true})
	svc := &settings.Service{Store: repo, Log: zerolog.Nop()}

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "EUR", got.Currency)
	require.Equal(t, int32(1900), got.TaxRateBps)
}

func TestHandlerGet(t *testing.T) {
	repo := memory.New()
	h := settings.NewHandler(&settings.Service{Store: repo, Log: zerolog.Nop()})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "currency")
}
