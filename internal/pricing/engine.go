package pricing

import "errors"

// Money represents a monetary value stored in minor units.
type Money = int64

// ErrInvalidDiscount is returned when a discount exceeds its allowed bounds.
var ErrInvalidDiscount = errors.New("invalid discount")

// Discount kinds.
const (
	DiscountPercent = "percentage"
	DiscountFlat    = "flat"
)

// Tax modes.
const (
	TaxAdded    = "added"
	TaxIncluded = "included"
	TaxDisabled = "disabled"
)

// Line describes a cart line used for pricing calculation.
type Line struct {
	Qty       int32
	UnitPrice Money
}

// Discount is a cart-session discount. Percent discounts carry a rate in
// basis points (10000 = 100%); flat discounts carry an absolute amount.
type Discount struct {
	Kind       string `json:"kind,omitempty"`
	PercentBps int32  `json:"percentBps,omitempty"`
	Amount     Money  `json:"amount,omitempty"`
}

// Tax carries the tax configuration snapshot for a computation. It is always
// passed in explicitly so refunds can replay the rate from the original sale.
type Tax struct {
	Mode    string
	RateBps int32
	Name    string
}

// Quote aggregates computed pricing components.
type Quote struct {
	Subtotal    Money `json:"subtotal"`
	Discount    Money `json:"discount"`
	TaxableBase Money `json:"taxableBase"`
	Tax         Money `json:"tax"`
	Total       Money `json:"total"`
}

// ValidateDiscount rejects discounts outside their allowed bounds: percent
// above 100% and flat amounts above the current subtotal.
func ValidateDiscount(d Discount, subtotal Money) error {
	switch d.Kind {
	case "":
		return nil
	case DiscountPercent:
		if d.PercentBps < 0 || d.PercentBps > 10000 {
			return ErrInvalidDiscount
		}
	case DiscountFlat:
		if d.Amount < 0 || d.Amount > subtotal {
			return ErrInvalidDiscount
		}
	default:
		return ErrInvalidDiscount
	}
	return nil
}

// Compute calculates cart totals for the given discount and tax snapshot.
// Out-of-bounds discounts are clamped; callers wanting a hard failure run
// ValidateDiscount first.
func Compute(lines []Line, discount Discount, tax Tax) Quote {
	var subtotal Money
	for _, ln := range lines {
		if ln.Qty <= 0 {
			continue
		}
		subtotal += Money(ln.Qty) * ln.UnitPrice
	}

	var off Money
	switch discount.Kind {
	case DiscountPercent:
		bps := discount.PercentBps
		if bps > 10000 {
			bps = 10000
		}
		if bps > 0 {
			off = (subtotal * Money(bps)) / 10000
		}
	case DiscountFlat:
		off = discount.Amount
	}
	if off > subtotal {
		off = subtotal
	}
	if off < 0 {
		off = 0
	}

	base := subtotal - off
	var taxAmount Money
	var total Money
	switch tax.Mode {
	case TaxIncluded:
		// Listed prices already contain tax; extract the embedded portion
		// without re-adding it to the total.
		taxAmount = base - (base*10000)/(10000+Money(tax.RateBps))
		total = base
	case TaxAdded:
		taxAmount = (base * Money(tax.RateBps)) / 10000
		total = base + taxAmount
	default:
		total = base
	}

	return Quote{
		Subtotal:    subtotal,
		Discount:    off,
		TaxableBase: base,
		Tax:         taxAmount,
		Total:       total,
	}
}

// Change returns the cash change due for a payment against a total.
func Change(paid, total Money) Money {
	return paid - total
}
