package terminal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/refund"
)

type refundSearchRequest struct {
	ReceiptID string `json:"receiptId" validate:"required,max=64"`
}

type refundAdjustRequest struct {
	Qty           *int32 `json:"qty" validate:"omitempty,gte=0"`
	ReturnToStock *bool  `json:"returnToStock"`
}

type refundConfirmRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type refundView struct {
	ReceiptID string              `json:"receiptId"`
	Items     []refund.ReviewItem `json:"items"`
	Amount    int64               `json:"amount"`
}

func viewOf(review *refund.Review) refundView {
	return refundView{
		ReceiptID: review.Transaction.ReceiptID,
		Items:     review.Items,
		Amount:    review.Amount(),
	}
}

// SearchRefund handles POST /refund/search. A found transaction replaces any
// review already open on this terminal.
func (h *Handler) SearchRefund(w http.ResponseWriter, r *http.Request) {
	var req refundSearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	review, err := h.Refund.Lookup(r.Context(), req.ReceiptID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	s.Review = review
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(review)})
}

// AdjustRefundItem handles PATCH /refund/items/{productID}: quantity and
// return-to-stock changes on the open review.
func (h *Handler) AdjustRefundItem(w http.ResponseWriter, r *http.Request) {
	var req refundAdjustRequest
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

	if s.Review == nil {
		common.JSONError(w, http.StatusNotFound, "NO_REVIEW", "no refund review open on this terminal", nil)
		return
	}
	found := true
	if req.Qty != nil {
		_, found = s.Review.AdjustQuantity(productID, *req.Qty)
	}
	if found && req.ReturnToStock != nil {
		found = s.Review.SetReturnToStock(productID, *req.ReturnToStock)
	}
	if !found {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not on this refund", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(s.Review)})
}

// ConfirmRefund handles POST /refund/confirm. On success the review is
// closed; on failure it stays open for retry.
func (h *Handler) ConfirmRefund(w http.ResponseWriter, r *http.Request) {
	var req refundConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	if s.Review == nil {
		common.JSONError(w, http.StatusNotFound, "NO_REVIEW", "no refund review open on this terminal", nil)
		return
	}
	persisted, warnings, err := h.Refund.Execute(r.Context(), s.Review, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	s.Review = nil
	common.JSON(w, http.StatusCreated, map[string]any{
		"data":     persisted,
		"warnings": warnings,
	})
}

// AbandonRefund handles DELETE /refund.
func (h *Handler) AbandonRefund(w http.ResponseWriter, r *http.Request) {
	s, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	s.Review = nil
	common.JSON(w, http.StatusOK, map[string]any{"data": "refund review discarded"})
}
