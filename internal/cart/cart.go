package cart

import (
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
)

// ErrOutOfStock indicates the product has no effective stock left to add.
var ErrOutOfStock = errors.New("product out of stock")

// ErrMissingBarcode indicates a verified-barcode add hit a product without a barcode.
var ErrMissingBarcode = errors.New("product has no barcode")

// Line is a cart line holding a name and price snapshot taken at add time.
type Line struct {
	ProductID uuid.UUID     `json:"productId"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Qty       int32         `json:"qty"`
}

// Cart is the ordered, mutable line collection for one operator session.
// It performs no locking of its own; the terminal session owning it
// serializes access.
type Cart struct {
	lines    []Line
	discount pricing.Discount
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// EffectiveStock is the product's real stock minus the quantity already held
// in this cart. The hold is an in-memory, session-scoped heuristic, never a
// persisted reservation.
func (c *Cart) EffectiveStock(p store.Product) int32 {
	return p.Stock - c.QtyOf(p.ID)
}

// Add inserts a new line with quantity 1 or increments an existing one.
// fromVerifiedBarcode marks adds that originate from a barcode scan, which
// require the product to actually carry a barcode.
func (c *Cart) Add(p store.Product, fromVerifiedBarcode bool) error {
	if fromVerifiedBarcode && p.Barcode == "" {
		return ErrMissingBarcode
	}
	if c.EffectiveStock(p) <= 0 {
		return ErrOutOfStock
	}
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Qty++
			return nil
		}
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Qty:       1,
	})
	return nil
}

// SetQuantity sets a line's quantity and returns the quantity actually
// applied. Non-positive quantities remove the line. Increases are re-checked
// against real stock and clamped to what is available; decreases never are.
func (c *Cart) SetQuantity(p store.Product, qty int32) (int32, error) {
	idx := -1
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, nil
	}
	if qty <= 0 {
		c.Remove(p.ID)
		return 0, nil
	}
	current := c.lines[idx].Qty
	if qty > current {
		available := p.Stock - current
		if available <= 0 {
			return current, ErrOutOfStock
		}
		if qty > current+available {
			qty = current + available
		}
	}
	c.lines[idx].Qty = qty
	return qty, nil
}

// Remove deletes the line for the given product, keeping line order stable.
func (c *Cart) Remove(productID uuid.UUID) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and resets the session discount.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = pricing.Discount{}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// QtyOf reports the quantity currently held for the given product.
func (c *Cart) QtyOf(productID uuid.UUID) int32 {
	for _, ln := range c.lines {
		if ln.ProductID == productID {
			return ln.Qty
		}
	}
	return 0
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// PricingLines converts the cart to pricing engine input.
func (c *Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(c.lines))
	for _, ln := range c.lines {
		out = append(out, pricing.Line{Qty: ln.Qty, UnitPrice: ln.UnitPrice})
	}
	return out
}

// Subtotal sums line price × quantity.
func (c *Cart) Subtotal() pricing.Money {
	var subtotal pricing.Money
	for _, ln := range c.lines {
		subtotal += pricing.Money(ln.Qty) * ln.UnitPrice
	}
	return subtotal
}

// SetDiscount validates the discount against the current subtotal and
// attaches it to the session.
func (c *Cart) SetDiscount(d pricing.Discount) error {
	if err := pricing.ValidateDiscount(d, c.Subtotal()); err != nil {
		return err
	}
	c.discount = d
	return nil
}

// Discount returns the session discount.
func (c *Cart) Discount() pricing.Discount {
	return c.discount
}

// ClearDiscount removes the session discount without touching the lines.
func (c *Cart) ClearDiscount() {
	c.discount = pricing.Discount{}
}
