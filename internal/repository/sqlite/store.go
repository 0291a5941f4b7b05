// Package sqlite provides a SQLite-backed product repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"allocationservice/internal/domain"
	"allocationservice/internal/repository"
	"allocationservice/internal/repository/sqlite/migrations"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const etaLayout = "2006-01-02"

// Store persists products, their batches and allocations in SQLite.
type Store struct {
	db *sqlx.DB
}

type productRow struct {
	SKU     string `db:"sku"`
	Version int    `db:"version"`
}

type batchRow struct {
	Reference    string         `db:"reference"`
	SKU          string         `db:"sku"`
	Position     int            `db:"position"`
	ETA          sql.NullString `db:"eta"`
	PurchasedQty int            `db:"purchased_qty"`
}

type allocationRow struct {
	BatchReference string `db:"batch_reference"`
	OrderID        string `db:"order_id"`
	SKU            string `db:"sku"`
	Qty            int    `db:"qty"`
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes transactions.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Write inserts a new product with its batches.
func (s *Store) Write(ctx context.Context, product *domain.Product) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO products (sku, version) VALUES (?, ?)`,
			product.SKU, product.Version,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", repository.ErrKeyExists, product.SKU)
			}
			return fmt.Errorf("insert product: %w", err)
		}
		return insertBatches(ctx, tx, product)
	})
}

// Update inserts the product or replaces its stored batch list.
func (s *Store) Update(ctx context.Context, product *domain.Product) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (sku, version) VALUES (?, ?)
			 ON CONFLICT (sku) DO UPDATE SET version = excluded.version`,
			product.SKU, product.Version,
		); err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}
		if err := deleteBatches(ctx, tx, product.SKU); err != nil {
			return err
		}
		return insertBatches(ctx, tx, product)
	})
}

// Read loads the product for the SKU.
func (s *Store) Read(ctx context.Context, sku string) (*domain.Product, error) {
	var product *domain.Product
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var row productRow
		if err := tx.GetContext(ctx, &row, `SELECT sku, version FROM products WHERE sku = ?`, sku); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", repository.ErrNotFound, sku)
			}
			return fmt.Errorf("get product: %w", err)
		}

		var batches []batchRow
		if err := tx.SelectContext(ctx, &batches,
			`SELECT reference, sku, position, eta, purchased_qty
			   FROM batches
			  WHERE sku = ?
			  ORDER BY position`,
			sku,
		); err != nil {
			return fmt.Errorf("list batches: %w", err)
		}

		var allocations []allocationRow
		if err := tx.SelectContext(ctx, &allocations,
			`SELECT batch_reference, order_id, sku, qty
			   FROM allocations
			  WHERE sku = ?
			  ORDER BY batch_reference, order_id, qty`,
			sku,
		); err != nil {
			return fmt.Errorf("list allocations: %w", err)
		}

		p, err := toProduct(row, batches, allocations)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Remove deletes the product and everything stored under it.
func (s *Store) Remove(ctx context.Context, sku string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := deleteBatches(ctx, tx, sku); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE sku = ?`, sku)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", repository.ErrNotFound, sku)
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func deleteBatches(ctx context.Context, tx *sqlx.Tx, sku string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM allocations WHERE sku = ?`,
		sku,
	); err != nil {
		return fmt.Errorf("delete allocations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE sku = ?`, sku); err != nil {
		return fmt.Errorf("delete batches: %w", err)
	}
	return nil
}

func insertBatches(ctx context.Context, tx *sqlx.Tx, product *domain.Product) error {
	for i, b := range product.Batches() {
		row := batchRow{
			Reference:    b.Reference,
			SKU:          b.SKU,
			Position:     i,
			PurchasedQty: b.PurchasedQuantity(),
		}
		if b.ETA != nil {
			row.ETA = sql.NullString{String: b.ETA.Format(etaLayout), Valid: true}
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO batches (reference, sku, position, eta, purchased_qty)
			 VALUES (:reference, :sku, :position, :eta, :purchased_qty)`,
			row,
		); err != nil {
			return fmt.Errorf("insert batch %s: %w", b.Reference, err)
		}

		for _, line := range b.Allocations() {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO allocations (batch_reference, order_id, sku, qty)
				 VALUES (:batch_reference, :order_id, :sku, :qty)`,
				allocationRow{BatchReference: b.Reference, OrderID: line.OrderID, SKU: line.SKU, Qty: line.Qty},
			); err != nil {
				return fmt.Errorf("insert allocation for batch %s: %w", b.Reference, err)
			}
		}
	}
	return nil
}

func toProduct(row productRow, batches []batchRow, allocations []allocationRow) (*domain.Product, error) {
	lines := make(map[string][]domain.OrderLine, len(batches))
	for _, a := range allocations {
		lines[a.BatchReference] = append(lines[a.BatchReference], domain.NewOrderLine(a.OrderID, a.SKU, a.Qty))
	}

	restored := make([]*domain.Batch, 0, len(batches))
	for _, b := range batches {
		var eta *time.Time
		if b.ETA.Valid {
			t, err := time.Parse(etaLayout, b.ETA.String)
			if err != nil {
				return nil, fmt.Errorf("parse eta of batch %s: %w", b.Reference, err)
			}
			eta = &t
		}
		restored = append(restored, domain.RestoreBatch(b.Reference, b.SKU, b.PurchasedQty, eta, lines[b.Reference]))
	}

	product, err := domain.NewProduct(row.SKU, restored...)
	if err != nil {
		return nil, fmt.Errorf("restore product %s: %w", row.SKU, err)
	}
	product.Version = row.Version
	return product, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ repository.Repository = (*Store)(nil)
