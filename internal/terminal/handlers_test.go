package terminal_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/refund"
	"github.com/noah-isme/backend-pos/internal/settings"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/store/memory"
	"github.com/noah-isme/backend-pos/internal/terminal"
)

type fixture struct {
	repo   *memory.Store
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	repo.SetSettings(store.Settings{
		Currency:          "USD",
		TaxMode:           "added",
		TaxRateBps:        2000,
		LowStockThreshold: 2,
		CashEnabled:       true,
		CardEnabled:       true,
	})
	bus := events.NewBus(repo, zerolog.Nop())
	h := &terminal.Handler{
		Registry: terminal.NewRegistry(0, zerolog.Nop()),
		Catalog:  &catalog.Service{Store: repo, Log: zerolog.Nop()},
		Settings: &settings.Service{Store: repo, Log: zerolog.Nop()},
		Checkout: &checkout.Service{Store: repo, Events: bus, Log: zerolog.Nop()},
		Refund:   &refund.Service{Store: repo, Events: bus, Log: zerolog.Nop()},
		Validate: validator.New(),
		Log:      zerolog.Nop(),
	}
	r := chi.NewRouter()
	r.Mount("/api/v1/terminals/{terminalID}", h.Routes())
	return &fixture{repo: repo, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1/terminals/till-1"+path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	data, _ := out["data"].(map[string]any)
	return data
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)
	p := store.Product{ID: uuid.New(), Name: "coffee", Barcode: "8901", Price: 1000, Stock: 10}
	f.repo.SeedProduct(p)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"productId": p.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/cart/items", map[string]any{"barcode": "8901"})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData(t, rec)
	lines := data["lines"].([]any)
	require.Len(t, lines, 1)
	require.Equal(t, float64(2), lines[0].(map[string]any)["qty"])

	rec = f.do(t, http.MethodPut, "/cart/discount", map[string]any{"type": "percentage", "value": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decodeData(t, rec)["quote"].(map[string]any)
	require.Equal(t, float64(2160), quote["total"])

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/cart/items/%s", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeData(t, rec)["lines"])
}

func TestDiscountRejectsPercentOverHundred(t *testing.T) {
	f := newFixture(t)
	p := store.Product{ID: uuid.New(), Name: "coffee", Price: 1000, Stock: 10}
	f.repo.SeedProduct(p)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"productId": p.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 42949673 percent would wrap to 4 bps if converted through int32.
	for _, value := range []int64{101, 42949673} {
		rec = f.do(t, http.MethodPut, "/cart/discount", map[string]any{"type": "percentage", "value": value})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "INVALID_DISCOUNT")
	}
}

func TestAddUnknownProduct(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"productId": uuid.NewString()})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddRequiresIdentifier(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddOutOfStock(t *testing.T) {
	f := newFixture(t)
	p := store.Product{ID: uuid.New(), Name: "rare", Price: 100, Stock: 1}
	f.repo.SeedProduct(p)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"productId": p.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/cart/items", map[string]any{"productId": p.ID.String()})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "OUT_OF_STOCK")
}

func TestCheckoutAndRefundFlow(t *testing.T) {
	f := newFixture(t)
	p := store.Product{ID: uuid.New(), Name: "widget", Price: 1000, Stock: 10}
	f.repo.SeedProduct(p)

	for range 2 {
		rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"productId": p.ID.String()})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/checkout", map[string]any{"method": "cash", "amount": 1000})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_PAYMENT")

	rec = f.do(t, http.MethodPost, "/checkout", map[string]any{"method": "cash", "amount": 3000})
	require.Equal(t, http.StatusCreated, rec.Code)
	receipt := decodeData(t, rec)
	receiptID := receipt["receiptId"].(string)
	require.NotEmpty(t, receiptID)
	require.Equal(t, float64(2400), receipt["total"])

	// Cart is cleared after checkout.
	rec = f.do(t, http.MethodGet, "/cart", nil)
	require.Empty(t, decodeData(t, rec)["lines"])

	rec = f.do(t, http.MethodPost, "/refund/search", map[string]any{"receiptId": receiptID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/refund/items/%s", p.ID), map[string]any{"qty": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1200), decodeData(t, rec)["amount"])

	rec = f.do(t, http.MethodPost, "/refund/confirm", map[string]any{"reason": "damaged"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Remaining unit still refundable.
	rec = f.do(t, http.MethodPost, "/refund/search", map[string]any{"receiptId": receiptID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/refund/confirm", map[string]any{"reason": "damaged"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/refund/search", map[string]any{"receiptId": receiptID})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "ALREADY_REFUNDED")
}

func TestRefundSearchNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/refund/search", map[string]any{"receiptId": "POS-20260901-000000"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmWithoutReviewFails(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/refund/confirm", map[string]any{"reason": "oops"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NO_REVIEW")
}

func TestConfirmRequiresReason(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/refund/confirm", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
