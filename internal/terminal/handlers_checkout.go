package terminal

import (
	"net/http"

	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/common"
)

type checkoutRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

// DoCheckout handles POST /checkout. The session stays locked for the whole
// sequence, so a second request on the same terminal gets TERMINAL_BUSY.
func (h *Handler) DoCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	ctx := r.Context()
	cfg, err := h.Settings.Get(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	tx, warnings, err := h.Checkout.Checkout(ctx, s.Cart, cfg, checkout.Payment{
		Method: req.Method,
		Amount: req.Amount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data":     checkout.BuildReceipt(tx, cfg.Currency),
		"warnings": warnings,
	})
}
