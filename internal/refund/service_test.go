package refund_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/refund"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/store/memory"
)

func newService(repo *memory.Store) *refund.Service {
	return &refund.Service{
		Store:  repo,
		Events: events.NewBus(repo, zerolog.Nop()),
		Log:    zerolog.Nop(),
	}
}

// seedSale persists a two-unit sale of one product at 10.00 with 20% added tax.
func seedSale(t *testing.T, repo *memory.Store) (store.Product, store.Transaction) {
	t.Helper()
	p := store.Product{ID: uuid.New(), Name: "widget", Price: 1000, Stock: 8}
	repo.SeedProduct(p)
	tx, err := repo.CreateTransaction(context.Background(), store.Transaction{
		ReceiptID: "POS-20260901-000001",
		Items: []store.TransactionItem{
			{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Qty: 2},
		},
		Subtotal:      2000,
		TaxAmount:     400,
		TaxMode:       pricing.TaxAdded,
		TaxRateBps:    2000,
		Total:         2400,
		PaymentMethod: "cash",
		PaymentAmount: 2400,
	})
	require.NoError(t, err)
	return p, tx
}

func TestLookupSeedsReview(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)

	review, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.Len(t, review.Items, 1)
	require.Equal(t, p.ID, review.Items[0].ProductID)
	require.Equal(t, int32(2), review.Items[0].MaxQty)
	require.Equal(t, int32(2), review.Items[0].Qty)
	require.True(t, review.Items[0].ReturnToStock)
}

func TestLookupNotFound(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	_, err := svc.Lookup(context.Background(), "POS-20260901-999999")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Lookup(context.Background(), "  ")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPartialRefundRestoresStockAndTax(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)

	review, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	applied, ok := review.AdjustQuantity(p.ID, 1)
	require.True(t, ok)
	require.Equal(t, int32(1), applied)

	// 10.00 plus the original sale's 20% added tax.
	require.Equal(t, pricing.Money(1200), review.Amount())

	persisted, warnings, err := svc.Execute(context.Background(), review, "damaged item")
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, int64(1200), persisted.Amount)

	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(9), got.Stock)

	// Partial refund leaves the transaction open for the remainder.
	after, err := repo.GetTransactionByReceiptID(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.False(t, after.Refunded)
	require.Equal(t, int32(1), after.RemainingQty(p.ID))
}

func TestSecondRefundOnRemainderThenAlreadyRefunded(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)

	first, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	_, _ = first.AdjustQuantity(p.ID, 1)
	_, _, err = svc.Execute(context.Background(), first, "wrong size")
	require.NoError(t, err)

	second, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.Equal(t, int32(1), second.Items[0].MaxQty)
	_, _, err = svc.Execute(context.Background(), second, "wrong size")
	require.NoError(t, err)

	after, err := repo.GetTransactionByReceiptID(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.True(t, after.Refunded)

	_, err = svc.Lookup(context.Background(), tx.ReceiptID)
	require.ErrorIs(t, err, refund.ErrAlreadyRefunded)
}

func TestExecutePreconditions(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)

	review, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)

	_, _, err = svc.Execute(context.Background(), review, "   ")
	require.ErrorIs(t, err, refund.ErrMissingReason)

	_, _ = review.AdjustQuantity(p.ID, 0)
	_, _, err = svc.Execute(context.Background(), review, "changed mind")
	require.ErrorIs(t, err, refund.ErrNothingSelected)

	// Nothing persisted, stock untouched.
	require.Empty(t, repo.Refunds())
	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(8), got.Stock)
}

func TestExecuteSkipsStockWhenReturnToStockOff(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)

	review, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.True(t, review.SetReturnToStock(p.ID, false))

	_, warnings, err := svc.Execute(context.Background(), review, "disposed on site")
	require.NoError(t, err)
	require.Empty(t, warnings)

	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(8), got.Stock)
}

func TestExecuteStockFailureSurfacesWarning(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)
	repo.FailAdjustStock = map[uuid.UUID]bool{p.ID: true}

	review, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	persisted, warnings, err := svc.Execute(context.Background(), review, "damaged")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.NotEqual(t, uuid.Nil, persisted.ID)

	// Refund is persisted despite the stock failure.
	require.Len(t, repo.Refunds(), 1)
}

func TestExecutePersistFailureLeavesState(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p, tx := seedSale(t, repo)
	repo.FailCreateRefund = true

	review, err := svc.Lookup(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	_, _, err = svc.Execute(context.Background(), review, "damaged")
	require.Error(t, err)

	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(8), got.Stock)
	after, err := repo.GetTransactionByReceiptID(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.Equal(t, int32(2), after.RemainingQty(p.ID))
}
