package terminal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/refund"
	"github.com/noah-isme/backend-pos/internal/settings"
	"github.com/noah-isme/backend-pos/internal/store"
)

// Handler exposes all terminal-scoped endpoints: cart mutation, checkout,
// and the refund flow. Every request runs under the terminal's session lock.
type Handler struct {
	Registry *Registry
	Catalog  *catalog.Service
	Settings *settings.Service
	Checkout *checkout.Service
	Refund   *refund.Service
	Validate *validator.Validate
	Log      zerolog.Logger
}

// Routes mounts the terminal endpoints on a fresh router. The caller mounts
// it under a {terminalID} path scope.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/cart", h.GetCart)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{productID}", h.SetItemQuantity)
	r.Delete("/cart/items/{productID}", h.RemoveItem)
	r.Put("/cart/discount", h.SetDiscount)
	r.Delete("/cart/discount", h.ClearDiscount)
	r.Post("/checkout", h.DoCheckout)
	r.Post("/refund/search", h.SearchRefund)
	r.Patch("/refund/items/{productID}", h.AdjustRefundItem)
	r.Post("/refund/confirm", h.ConfirmRefund)
	r.Delete("/refund", h.AbandonRefund)
	return r
}

// session resolves and locks the request's terminal session. On failure the
// response is already written and ok is false.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (s *Session, release func(), ok bool) {
	terminalID := strings.TrimSpace(chi.URLParam(r, "terminalID"))
	if terminalID == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "terminal id required", nil)
		return nil, nil, false
	}
	s, release, err := h.Registry.Acquire(terminalID)
	if err != nil {
		h.writeError(w, err)
		return nil, nil, false
	}
	return s, release, true
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_JSON", "request body is not valid JSON", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dest); err != nil {
			var fields []string
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fields = append(fields, fe.Field())
				}
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "request validation failed", map[string]any{"fields": fields})
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBusy):
		common.JSONError(w, http.StatusConflict, "TERMINAL_BUSY", "another operation is in progress on this terminal", nil)
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, refund.ErrAlreadyRefunded):
		common.JSONError(w, http.StatusConflict, "ALREADY_REFUNDED", "transaction has no refundable quantity left", nil)
	case errors.Is(err, cart.ErrOutOfStock):
		common.JSONError(w, http.StatusUnprocessableEntity, "OUT_OF_STOCK", "not enough stock available", nil)
	case errors.Is(err, cart.ErrMissingBarcode):
		common.JSONError(w, http.StatusUnprocessableEntity, "MISSING_BARCODE", "product has no barcode on file", nil)
	case errors.Is(err, pricing.ErrInvalidDiscount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_DISCOUNT", "discount is out of bounds", nil)
	case errors.Is(err, checkout.ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, checkout.ErrInsufficientPayment):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_PAYMENT", "payment amount below total", nil)
	case errors.Is(err, checkout.ErrPaymentMethodDisabled):
		common.JSONError(w, http.StatusUnprocessableEntity, "PAYMENT_METHOD_DISABLED", "payment method not available", nil)
	case errors.Is(err, refund.ErrMissingReason):
		common.JSONError(w, http.StatusUnprocessableEntity, "MISSING_REASON", "refund reason required", nil)
	case errors.Is(err, refund.ErrNothingSelected):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOTHING_SELECTED", "no items selected for refund", nil)
	default:
		h.Log.Error().Err(err).Msg("terminal request failed")
		common.JSONError(w, http.StatusBadGateway, "PERSISTENCE", "operation failed, state preserved for retry", nil)
	}
}
