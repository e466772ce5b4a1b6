package refund

import (
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
)

// ReviewItem is one adjustable line of a refund under review. MaxQty is the
// quantity still refundable on that line: purchased minus already refunded.
type ReviewItem struct {
	ProductID     uuid.UUID     `json:"productId"`
	Name          string        `json:"name"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	MaxQty        int32         `json:"maxQty"`
	Qty           int32         `json:"qty"`
	ReturnToStock bool          `json:"returnToStock"`
}

// Review is the mutable refund candidate built from a located transaction.
// It carries the original sale's tax snapshot so the refund amount replays
// the rate in effect at sale time, not current settings.
type Review struct {
	Transaction store.Transaction `json:"transaction"`
	Items       []ReviewItem      `json:"items"`
}

// NewReview seeds a review from a transaction: every line with refundable
// quantity left is preselected in full, with return-to-stock on.
func NewReview(tx store.Transaction) *Review {
	r := &Review{Transaction: tx}
	for _, it := range tx.Items {
		remaining := it.Qty - it.RefundedQty
		if remaining <= 0 {
			continue
		}
		r.Items = append(r.Items, ReviewItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			UnitPrice:     it.UnitPrice,
			MaxQty:        remaining,
			Qty:           remaining,
			ReturnToStock: true,
		})
	}
	return r
}

// AdjustQuantity clamps the selected quantity to [0, MaxQty] and returns the
// applied value. Unknown products report found=false.
func (r *Review) AdjustQuantity(productID uuid.UUID, qty int32) (int32, bool) {
	for i := range r.Items {
		if r.Items[i].ProductID != productID {
			continue
		}
		if qty < 0 {
			qty = 0
		}
		if qty > r.Items[i].MaxQty {
			qty = r.Items[i].MaxQty
		}
		r.Items[i].Qty = qty
		return qty, true
	}
	return 0, false
}

// SetReturnToStock toggles whether a refunded line goes back into stock.
func (r *Review) SetReturnToStock(productID uuid.UUID, returnToStock bool) bool {
	for i := range r.Items {
		if r.Items[i].ProductID == productID {
			r.Items[i].ReturnToStock = returnToStock
			return true
		}
	}
	return false
}

// Selected returns the lines with a positive refund quantity.
func (r *Review) Selected() []ReviewItem {
	out := make([]ReviewItem, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Qty > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Amount computes the refund value of the current selection. When the
// original sale added tax on top of listed prices, the same rate is applied
// on top here; included and disabled modes refund the line value as is.
func (r *Review) Amount() pricing.Money {
	var sum pricing.Money
	for _, it := range r.Items {
		if it.Qty > 0 {
			sum += pricing.Money(it.Qty) * it.UnitPrice
		}
	}
	if r.Transaction.TaxMode == pricing.TaxAdded {
		sum += (sum * pricing.Money(r.Transaction.TaxRateBps)) / 10000
	}
	return sum
}
