package checkout_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/store/memory"
)

var receiptPattern = regexp.MustCompile(`^POS-\d{8}-\d{6}$`)

func newService(repo *memory.Store) *checkout.Service {
	return &checkout.Service{
		Store:  repo,
		Events: events.NewBus(repo, zerolog.Nop()),
		Log:    zerolog.Nop(),
	}
}

func seedProduct(repo *memory.Store, price int64, stock int32) store.Product {
	p := store.Product{ID: uuid.New(), Name: "widget", Price: price, Stock: stock}
	repo.SeedProduct(p)
	return p
}

func settings() store.Settings {
	return store.Settings{
		Currency:          "USD",
		TaxMode:           pricing.TaxAdded,
		TaxRateBps:        2000,
		LowStockThreshold: 2,
		CashEnabled:       true,
		CardEnabled:       true,
	}
}

func TestCheckoutCash(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p := seedProduct(repo, 1000, 10)

	c := cart.New()
	require.NoError(t, c.Add(p, false))
	require.NoError(t, c.Add(p, false))
	require.NoError(t, c.SetDiscount(pricing.Discount{Kind: pricing.DiscountPercent, PercentBps: 1000}))

	tx, warnings, err := svc.Checkout(context.Background(), c, settings(), checkout.Payment{Method: checkout.MethodCash, Amount: 2500})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Regexp(t, receiptPattern, tx.ReceiptID)
	require.Equal(t, int64(2000), tx.Subtotal)
	require.Equal(t, int64(200), tx.DiscountAmount)
	require.Equal(t, int64(360), tx.TaxAmount)
	require.Equal(t, int64(2160), tx.Total)
	require.Equal(t, int64(340), tx.Change)
	require.True(t, c.Empty())

	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(8), got.Stock)

	stored, err := repo.GetTransactionByReceiptID(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	require.Equal(t, int32(2), stored.Items[0].Qty)
}

func TestCheckoutCardForcesExactAmount(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p := seedProduct(repo, 1800, 5)

	c := cart.New()
	require.NoError(t, c.Add(p, false))

	tx, _, err := svc.Checkout(context.Background(), c, settings(), checkout.Payment{Method: checkout.MethodCard, Amount: 1})
	require.NoError(t, err)
	require.Equal(t, tx.Total, tx.PaymentAmount)
	require.Equal(t, int64(0), tx.Change)
}

func TestCheckoutInsufficientPaymentLeavesNoTrace(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p := seedProduct(repo, 1000, 10)

	c := cart.New()
	require.NoError(t, c.Add(p, false))
	require.NoError(t, c.Add(p, false))
	require.NoError(t, c.SetDiscount(pricing.Discount{Kind: pricing.DiscountPercent, PercentBps: 1000}))

	_, _, err := svc.Checkout(context.Background(), c, settings(), checkout.Payment{Method: checkout.MethodCash, Amount: 2000})
	require.ErrorIs(t, err, checkout.ErrInsufficientPayment)
	require.False(t, c.Empty())

	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(10), got.Stock)
	require.Empty(t, repo.Events())
}

func TestCheckoutEmptyCart(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	_, _, err := svc.Checkout(context.Background(), cart.New(), settings(), checkout.Payment{Method: checkout.MethodCash, Amount: 100})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestCheckoutDisabledMethod(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p := seedProduct(repo, 500, 5)
	c := cart.New()
	require.NoError(t, c.Add(p, false))

	cfg := settings()
	cfg.CardEnabled = false
	_, _, err := svc.Checkout(context.Background(), c, cfg, checkout.Payment{Method: checkout.MethodCard, Amount: 600})
	require.ErrorIs(t, err, checkout.ErrPaymentMethodDisabled)

	_, _, err = svc.Checkout(context.Background(), c, cfg, checkout.Payment{Method: "voucher", Amount: 600})
	require.ErrorIs(t, err, checkout.ErrPaymentMethodDisabled)
}

func TestCheckoutPersistFailureKeepsCart(t *testing.T) {
	repo := memory.New()
	repo.FailCreateTransaction = true
	svc := newService(repo)
	p := seedProduct(repo, 500, 5)

	c := cart.New()
	require.NoError(t, c.Add(p, false))

	_, _, err := svc.Checkout(context.Background(), c, settings(), checkout.Payment{Method: checkout.MethodCash, Amount: 600})
	require.Error(t, err)
	require.False(t, c.Empty())

	got, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int32(5), got.Stock)
}

func TestCheckoutStockFailureBecomesWarning(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p := seedProduct(repo, 500, 5)
	repo.FailAdjustStock = map[uuid.UUID]bool{p.ID: true}

	c := cart.New()
	require.NoError(t, c.Add(p, false))

	tx, warnings, err := svc.Checkout(context.Background(), c, settings(), checkout.Payment{Method: checkout.MethodCash, Amount: 600})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.True(t, c.Empty())

	// The transaction survives the stock failure.
	_, err = repo.GetTransactionByReceiptID(context.Background(), tx.ReceiptID)
	require.NoError(t, err)
}

func TestCheckoutEmitsLowStockEvent(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	p := seedProduct(repo, 500, 3)

	c := cart.New()
	require.NoError(t, c.Add(p, false))
	require.NoError(t, c.Add(p, false))

	_, _, err := svc.Checkout(context.Background(), c, settings(), checkout.Payment{Method: checkout.MethodCash, Amount: 2000})
	require.NoError(t, err)

	var topics []string
	for _, evt := range repo.Events() {
		topics = append(topics, evt.Topic)
	}
	require.Contains(t, topics, events.TopicStockLow)
	require.Contains(t, topics, events.TopicTransactionCompleted)
}
