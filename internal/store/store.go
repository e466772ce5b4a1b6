package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested record could not be located.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateReceipt indicates a transaction with the same receipt id already exists.
var ErrDuplicateReceipt = errors.New("duplicate receipt id")

// Product is a catalog row. The catalog itself is owned by an external
// back-office system; this service only reads it and adjusts stock.
type Product struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Barcode    string    `json:"barcode,omitempty"`
	Price      int64     `json:"price"`
	Stock      int32     `json:"stock"`
	CategoryID uuid.UUID `json:"categoryId"`
}

// Category is a catalog grouping row.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Settings is the terminal-facing configuration row maintained by the
// back-office settings screen.
type Settings struct {
	Currency          string `json:"currency"`
	TaxRateBps        int32  `json:"taxRateBps"`
	TaxMode           string `json:"taxMode"`
	TaxName           string `json:"taxName"`
	LowStockThreshold int32  `json:"lowStockThreshold"`
	CashEnabled       bool   `json:"cashEnabled"`
	CardEnabled       bool   `json:"cardEnabled"`
	UseNumPad         bool   `json:"useNumPad"`
}

// TransactionItem is an immutable snapshot of a cart line at checkout time.
// RefundedQty tracks how much of the line has been returned so far.
type TransactionItem struct {
	ProductID   uuid.UUID `json:"productId"`
	Name        string    `json:"name"`
	UnitPrice   int64     `json:"unitPrice"`
	Qty         int32     `json:"qty"`
	RefundedQty int32     `json:"refundedQty"`
}

// Transaction is a completed sale. Immutable after creation except the
// refund bookkeeping (per-item RefundedQty and the Refunded flag).
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	ReceiptID      string            `json:"receiptId"`
	Items          []TransactionItem `json:"items"`
	Subtotal       int64             `json:"subtotal"`
	DiscountAmount int64             `json:"discountAmount"`
	DiscountType   string            `json:"discountType,omitempty"`
	TaxAmount      int64             `json:"taxAmount"`
	TaxMode        string            `json:"taxMode"`
	TaxRateBps     int32             `json:"taxRateBps"`
	TaxName        string            `json:"taxName,omitempty"`
	Total          int64             `json:"total"`
	PaymentMethod  string            `json:"paymentMethod"`
	PaymentAmount  int64             `json:"paymentAmount"`
	Change         int64             `json:"change"`
	Refunded       bool              `json:"refunded"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// RemainingQty reports how many units of the given product can still be refunded.
func (t Transaction) RemainingQty(productID uuid.UUID) int32 {
	var remaining int32
	for _, it := range t.Items {
		if it.ProductID == productID {
			remaining += it.Qty - it.RefundedQty
		}
	}
	return remaining
}

// FullyRefunded reports whether no refundable quantity remains on any line.
func (t Transaction) FullyRefunded() bool {
	for _, it := range t.Items {
		if it.RefundedQty < it.Qty {
			return false
		}
	}
	return len(t.Items) > 0
}

// RefundItem is one returned line within a refund.
type RefundItem struct {
	ProductID     uuid.UUID `json:"productId"`
	Name          string    `json:"name"`
	UnitPrice     int64     `json:"unitPrice"`
	Qty           int32     `json:"qty"`
	ReturnToStock bool      `json:"returnToStock"`
}

// Refund is a persisted adjustment against a past transaction.
type Refund struct {
	ID            uuid.UUID    `json:"id"`
	TransactionID uuid.UUID    `json:"transactionId"`
	ReceiptID     string       `json:"receiptId"`
	Items         []RefundItem `json:"items"`
	Reason        string       `json:"reason"`
	Amount        int64        `json:"amount"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Event is a persisted domain event consumed by downstream notifiers.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Topic       string    `json:"topic"`
	AggregateID uuid.UUID `json:"aggregateId"`
	Payload     []byte    `json:"payload"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Repository is the persistence contract shared by the Postgres and
// in-memory implementations.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (Product, error)
	GetSettings(ctx context.Context) (Settings, error)

	// CreateTransaction persists the transaction and its item snapshot
	// atomically. Fails with ErrDuplicateReceipt on receipt id collision.
	CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	GetTransactionByReceiptID(ctx context.Context, receiptID string) (Transaction, error)

	// AdjustProductStock applies a delta to a product's stock, flooring the
	// result at zero, and returns the new stock level.
	AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int32) (int32, error)

	// CreateRefund persists the refund and bumps the per-item refunded
	// quantities on the original transaction in the same write.
	CreateRefund(ctx context.Context, refund Refund) (Refund, error)
	MarkTransactionRefunded(ctx context.Context, transactionID uuid.UUID) error

	InsertEvent(ctx context.Context, event Event) (Event, error)
}
