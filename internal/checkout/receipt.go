package checkout

import (
	"time"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
)

// ReceiptLine is one printed line item.
type ReceiptLine struct {
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Qty       int32         `json:"qty"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// Receipt is the artifact handed to rendering and printing consumers. It is
// derived entirely from the persisted transaction so reprints stay faithful.
type Receipt struct {
	ReceiptID      string        `json:"receiptId"`
	Currency       string        `json:"currency"`
	Items          []ReceiptLine `json:"items"`
	Subtotal       pricing.Money `json:"subtotal"`
	DiscountType   string        `json:"discountType,omitempty"`
	DiscountAmount pricing.Money `json:"discountAmount"`
	TaxName        string        `json:"taxName,omitempty"`
	TaxMode        string        `json:"taxMode"`
	TaxRateBps     int32         `json:"taxRateBps"`
	TaxAmount      pricing.Money `json:"taxAmount"`
	Total          pricing.Money `json:"total"`
	PaymentMethod  string        `json:"paymentMethod"`
	PaymentAmount  pricing.Money `json:"paymentAmount"`
	Change         pricing.Money `json:"change"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// BuildReceipt converts a persisted transaction into its receipt artifact.
func BuildReceipt(tx store.Transaction, currency string) Receipt {
	r := Receipt{
		ReceiptID:      tx.ReceiptID,
		Currency:       currency,
		Subtotal:       tx.Subtotal,
		DiscountType:   tx.DiscountType,
		DiscountAmount: tx.DiscountAmount,
		TaxName:        tx.TaxName,
		TaxMode:        tx.TaxMode,
		TaxRateBps:     tx.TaxRateBps,
		TaxAmount:      tx.TaxAmount,
		Total:          tx.Total,
		PaymentMethod:  tx.PaymentMethod,
		PaymentAmount:  tx.PaymentAmount,
		Change:         tx.Change,
		CreatedAt:      tx.CreatedAt,
	}
	for _, it := range tx.Items {
		r.Items = append(r.Items, ReceiptLine{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Qty:       it.Qty,
			LineTotal: pricing.Money(it.Qty) * it.UnitPrice,
		})
	}
	return r
}
