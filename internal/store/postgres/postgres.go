package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/store"
)

const uniqueViolation = "23505"

// Store implements store.Repository on top of a pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) ListProducts(ctx context.Context) ([]store.Product, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, COALESCE(barcode, ''), price, stock, category_id
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]store.Product, 0, 64)
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Stock, &p.CategoryID); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]store.Category, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]store.Category, 0, 16)
	for rows.Next() {
		var c store.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (store.Product, error) {
	var p store.Product
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(barcode, ''), price, stock, category_id
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Stock, &p.CategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Product{}, store.ErrNotFound
	}
	return p, err
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (store.Product, error) {
	var p store.Product
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(barcode, ''), price, stock, category_id
		FROM products WHERE barcode = $1
	`, barcode).Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Stock, &p.CategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Product{}, store.ErrNotFound
	}
	return p, err
}

func (s *Store) GetSettings(ctx context.Context) (store.Settings, error) {
	var out store.Settings
	err := s.Pool.QueryRow(ctx, `
		SELECT currency, tax_rate_bps, tax_mode, COALESCE(tax_name, ''),
		       low_stock_threshold, cash_enabled, card_enabled, use_numpad
		FROM pos_settings
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&out.Currency, &out.TaxRateBps, &out.TaxMode, &out.TaxName,
		&out.LowStockThreshold, &out.CashEnabled, &out.CardEnabled, &out.UseNumPad)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Settings{}, store.ErrNotFound
	}
	return out, err
}

func (s *Store) CreateTransaction(ctx context.Context, tx store.Transaction) (store.Transaction, error) {
	dbtx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.Transaction{}, err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	err = dbtx.QueryRow(ctx, `
		INSERT INTO transactions (
			receipt_id, subtotal, discount_amount, discount_type,
			tax_amount, tax_mode, tax_rate_bps, tax_name,
			total, payment_method, payment_amount, change_amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at
	`, tx.ReceiptID, tx.Subtotal, tx.DiscountAmount, tx.DiscountType,
		tx.TaxAmount, tx.TaxMode, tx.TaxRateBps, tx.TaxName,
		tx.Total, tx.PaymentMethod, tx.PaymentAmount, tx.Change,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Transaction{}, store.ErrDuplicateReceipt
		}
		return store.Transaction{}, err
	}

	for _, it := range tx.Items {
		if _, err := dbtx.Exec(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, name, unit_price, qty)
			VALUES ($1,$2,$3,$4,$5)
		`, tx.ID, it.ProductID, it.Name, it.UnitPrice, it.Qty); err != nil {
			return store.Transaction{}, err
		}
	}

	if err := dbtx.Commit(ctx); err != nil {
		return store.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) GetTransactionByReceiptID(ctx context.Context, receiptID string) (store.Transaction, error) {
	var tx store.Transaction
	err := s.Pool.QueryRow(ctx, `
		SELECT id, receipt_id, subtotal, discount_amount, COALESCE(discount_type, ''),
		       tax_amount, tax_mode, tax_rate_bps, COALESCE(tax_name, ''),
		       total, payment_method, payment_amount, change_amount, refunded, created_at
		FROM transactions WHERE receipt_id = $1
	`, receiptID).Scan(&tx.ID, &tx.ReceiptID, &tx.Subtotal, &tx.DiscountAmount, &tx.DiscountType,
		&tx.TaxAmount, &tx.TaxMode, &tx.TaxRateBps, &tx.TaxName,
		&tx.Total, &tx.PaymentMethod, &tx.PaymentAmount, &tx.Change, &tx.Refunded, &tx.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return store.Transaction{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, name, unit_price, qty, refunded_qty
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY position
	`, tx.ID)
	if err != nil {
		return store.Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it store.TransactionItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPrice, &it.Qty, &it.RefundedQty); err != nil {
			return store.Transaction{}, err
		}
		tx.Items = append(tx.Items, it)
	}
	return tx, rows.Err()
}

func (s *Store) AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int32) (int32, error) {
	var stock int32
	err := s.Pool.QueryRow(ctx, `
		UPDATE products
		SET stock = GREATEST(stock + $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING stock
	`, productID, delta).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return stock, err
}

func (s *Store) CreateRefund(ctx context.Context, refund store.Refund) (store.Refund, error) {
	dbtx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.Refund{}, err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	err = dbtx.QueryRow(ctx, `
		INSERT INTO refunds (transaction_id, receipt_id, reason, amount)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, refund.TransactionID, refund.ReceiptID, refund.Reason, refund.Amount,
	).Scan(&refund.ID, &refund.CreatedAt)
	if err != nil {
		return store.Refund{}, err
	}

	for _, it := range refund.Items {
		if _, err := dbtx.Exec(ctx, `
			INSERT INTO refund_items (refund_id, product_id, name, unit_price, qty, return_to_stock)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, refund.ID, it.ProductID, it.Name, it.UnitPrice, it.Qty, it.ReturnToStock); err != nil {
			return store.Refund{}, err
		}
		tag, err := dbtx.Exec(ctx, `
			UPDATE transaction_items
			SET refunded_qty = LEAST(refunded_qty + $3, qty)
			WHERE transaction_id = $1 AND product_id = $2
		`, refund.TransactionID, it.ProductID, it.Qty)
		if err != nil {
			return store.Refund{}, err
		}
		if tag.RowsAffected() == 0 {
			return store.Refund{}, fmt.Errorf("refund item not on transaction: %w", store.ErrNotFound)
		}
	}

	if err := dbtx.Commit(ctx); err != nil {
		return store.Refund{}, err
	}
	return refund, nil
}

func (s *Store) MarkTransactionRefunded(ctx context.Context, transactionID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE transactions SET refunded = true WHERE id = $1`, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, event store.Event) (store.Event, error) {
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1,$2,$3)
		RETURNING id, occurred_at
	`, event.Topic, event.AggregateID, event.Payload).Scan(&event.ID, &event.OccurredAt)
	return event, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
