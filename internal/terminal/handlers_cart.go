package terminal

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
)

type addItemRequest struct {
	ProductID             string `json:"productId" validate:"omitempty,uuid"`
	Barcode               string `json:"barcode" validate:"omitempty,max=64"`
	OriginVerifiedBarcode bool   `json:"originVerifiedBarcode"`
}

type setQuantityRequest struct {
	Qty int32 `json:"qty"`
}

type discountRequest struct {
	Type  string `json:"type" validate:"required,oneof=percentage flat"`
	Value int64  `json:"value" validate:"gte=0"`
}

type cartView struct {
	Lines    []cart.Line      `json:"lines"`
	Discount pricing.Discount `json:"discount"`
	Quote    pricing.Quote    `json:"quote"`
	Currency string           `json:"currency"`
}

func (h *Handler) view(ctx context.Context, c *cart.Cart) (cartView, error) {
	cfg, err := h.Settings.Get(ctx)
	if err != nil {
		return cartView{}, err
	}
	quote := pricing.Compute(c.PricingLines(), c.Discount(), pricing.Tax{
		Mode:    cfg.TaxMode,
		RateBps: cfg.TaxRateBps,
		Name:    cfg.TaxName,
	})
	return cartView{
		Lines:    c.Lines(),
		Discount: c.Discount(),
		Quote:    quote,
		Currency: cfg.Currency,
	}, nil
}

func (h *Handler) renderCart(w http.ResponseWriter, r *http.Request, c *cart.Cart, status int) {
	view, err := h.view(r.Context(), c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, status, map[string]any{"data": view})
}

// GetCart handles GET /cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	h.renderCart(w, r, s.Cart, http.StatusOK)
}

// ClearCart handles DELETE /cart. Clearing twice is a no-op.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	s.Cart.Clear()
	h.renderCart(w, r, s.Cart, http.StatusOK)
}

// AddItem handles POST /cart/items. The product comes either by id or by a
// scanned barcode; barcode adds carry the verified-scan origin flag.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ProductID == "" && strings.TrimSpace(req.Barcode) == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "productId or barcode required", nil)
		return
	}

	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	ctx := r.Context()
	var (
		product store.Product
		err     error
	)
	if req.ProductID != "" {
		id, parseErr := uuid.Parse(req.ProductID)
		if parseErr != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "productId is not a valid uuid", nil)
			return
		}
		product, err = h.Catalog.Product(ctx, id)
	} else {
		product, err = h.Catalog.ProductByBarcode(ctx, strings.TrimSpace(req.Barcode))
		req.OriginVerifiedBarcode = true
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := s.Cart.Add(product, req.OriginVerifiedBarcode); err != nil {
		h.writeError(w, err)
		return
	}
	h.renderCart(w, r, s.Cart, http.StatusCreated)
}

// SetItemQuantity handles PATCH /cart/items/{productID}.
func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "product id is not a valid uuid", nil)
		return
	}

	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	product, err := h.Catalog.Product(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := s.Cart.SetQuantity(product, req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.renderCart(w, r, s.Cart, http.StatusOK)
}

// RemoveItem handles DELETE /cart/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "product id is not a valid uuid", nil)
		return
	}
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	s.Cart.Remove(productID)
	h.renderCart(w, r, s.Cart, http.StatusOK)
}

// SetDiscount handles PUT /cart/discount. Percentage values are whole
// percents; flat values are minor currency units.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	d := pricing.Discount{Kind: req.Type}
	switch req.Type {
	case pricing.DiscountPercent:
		// Bound before converting to basis points so oversized values
		// cannot wrap through int32.
		if req.Value > 100 {
			h.writeError(w, pricing.ErrInvalidDiscount)
			return
		}
		d.PercentBps = int32(req.Value * 100)
	case pricing.DiscountFlat:
		d.Amount = req.Value
	}
	if err := s.Cart.SetDiscount(d); err != nil {
		h.writeError(w, err)
		return
	}
	h.renderCart(w, r, s.Cart, http.StatusOK)
}

// ClearDiscount handles DELETE /cart/discount.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	s.Cart.ClearDiscount()
	h.renderCart(w, r, s.Cart, http.StatusOK)
}
