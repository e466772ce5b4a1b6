package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestRemainingQty(t *testing.T) {
	productID := uuid.New()
	tx := Transaction{Items: []TransactionItem{
		{ProductID: productID, Qty: 3, RefundedQty: 1},
		{ProductID: uuid.New(), Qty: 2},
	}}
	if got := tx.RemainingQty(productID); got != 2 {
		t.Fatalf("remaining = %d, want 2", got)
	}
	if got := tx.RemainingQty(uuid.New()); got != 0 {
		t.Fatalf("remaining for unknown product = %d, want 0", got)
	}
}

func TestFullyRefunded(t *testing.T) {
	tx := Transaction{Items: []TransactionItem{{ProductID: uuid.New(), Qty: 2, RefundedQty: 2}}}
	if !tx.FullyRefunded() {
		t.Fatal("expected fully refunded")
	}
	tx.Items[0].RefundedQty = 1
	if tx.FullyRefunded() {
		t.Fatal("expected not fully refunded")
	}
	if (Transaction{}).FullyRefunded() {
		t.Fatal("empty transaction is never fully refunded")
	}
}
