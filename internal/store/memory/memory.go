package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/store"
)

// Store is an in-memory Repository used by tests and demo runs.
type Store struct {
	mu           sync.Mutex
	products     map[uuid.UUID]store.Product
	categories   []store.Category
	settings     store.Settings
	transactions map[uuid.UUID]store.Transaction
	byReceipt    map[string]uuid.UUID
	refunds      []store.Refund
	events       []store.Event

	// FailCreateTransaction and friends let tests exercise partial-failure paths.
	FailCreateTransaction bool
	FailAdjustStock       map[uuid.UUID]bool
	FailCreateRefund      bool
}

// New returns an empty in-memory store with sensible default settings.
func New() *Store {
	return &Store{
		products:     map[uuid.UUID]store.Product{},
		transactions: map[uuid.UUID]store.Transaction{},
		byReceipt:    map[string]uuid.UUID{},
		settings: store.Settings{
			Currency:          "USD",
			TaxMode:           "disabled",
			LowStockThreshold: 5,
			CashEnabled:       true,
			CardEnabled:       true,
		},
	}
}

// SeedProduct inserts or replaces a product row.
func (s *Store) SeedProduct(p store.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.products[p.ID] = p
}

// SeedCategories replaces the category list.
func (s *Store) SeedCategories(categories []store.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]store.Category(nil), categories...)
}

// SetSettings replaces the settings row.
func (s *Store) SetSettings(settings store.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *Store) ListProducts(_ context.Context) ([]store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]store.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Category(nil), s.categories...), nil
}

func (s *Store) GetProduct(_ context.Context, id uuid.UUID) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (store.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return store.Product{}, store.ErrNotFound
	}
	for _, p := range s.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return store.Product{}, store.ErrNotFound
}

func (s *Store) GetSettings(_ context.Context) (store.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx store.Transaction) (store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateTransaction {
		return store.Transaction{}, errInjected
	}
	if _, exists := s.byReceipt[tx.ReceiptID]; exists {
		return store.Transaction{}, store.ErrDuplicateReceipt
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Items = append([]store.TransactionItem(nil), tx.Items...)
	s.transactions[tx.ID] = tx
	s.byReceipt[tx.ReceiptID] = tx.ID
	return tx, nil
}

func (s *Store) GetTransactionByReceiptID(_ context.Context, receiptID string) (store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byReceipt[receiptID]
	if !ok {
		return store.Transaction{}, store.ErrNotFound
	}
	tx := s.transactions[id]
	tx.Items = append([]store.TransactionItem(nil), tx.Items...)
	return tx, nil
}

func (s *Store) AdjustProductStock(_ context.Context, productID uuid.UUID, delta int32) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAdjustStock[productID] {
		return 0, errInjected
	}
	p, ok := s.products[productID]
	if !ok {
		return 0, store.ErrNotFound
	}
	p.Stock += delta
	if p.Stock < 0 {
		p.Stock = 0
	}
	s.products[productID] = p
	return p.Stock, nil
}

func (s *Store) CreateRefund(_ context.Context, refund store.Refund) (store.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateRefund {
		return store.Refund{}, errInjected
	}
	tx, ok := s.transactions[refund.TransactionID]
	if !ok {
		return store.Refund{}, store.ErrNotFound
	}
	for _, ri := range refund.Items {
		for i := range tx.Items {
			if tx.Items[i].ProductID == ri.ProductID {
				tx.Items[i].RefundedQty += ri.Qty
				if tx.Items[i].RefundedQty > tx.Items[i].Qty {
					tx.Items[i].RefundedQty = tx.Items[i].Qty
				}
			}
		}
	}
	s.transactions[refund.TransactionID] = tx
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now().UTC()
	}
	refund.Items = append([]store.RefundItem(nil), refund.Items...)
	s.refunds = append(s.refunds, refund)
	return refund, nil
}

func (s *Store) MarkTransactionRefunded(_ context.Context, transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[transactionID]
	if !ok {
		return store.ErrNotFound
	}
	tx.Refunded = true
	s.transactions[transactionID] = tx
	return nil
}

func (s *Store) InsertEvent(_ context.Context, event store.Event) (store.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, event)
	return event, nil
}

// Refunds returns a copy of all persisted refunds.
func (s *Store) Refunds() []store.Refund {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Refund(nil), s.refunds...)
}

// Events returns a copy of all persisted events.
func (s *Store) Events() []store.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Event(nil), s.events...)
}

type injectedError struct{}

func (injectedError) Error() string { return "injected store failure" }

var errInjected = injectedError{}
