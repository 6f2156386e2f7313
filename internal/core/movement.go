package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Movement is one requested stock change: a signed delta for a single
// (product, location) pair, attributed to a document reference.
type Movement struct {
	ProductID     int
	LocationID    int
	Delta         decimal.Decimal // positive = stock in, negative = stock out
	OperationType OperationType
	Reference     string
	PartnerID     *int
	Notes         string
	UserID        *int
}

// ApplyMovementTx applies one movement within the caller's transaction:
// it locks the (product, location) stock row, rejects decreases that would
// go below zero, updates the quantity, and appends exactly one ledger entry
// carrying the resulting balance. The caller owns commit and rollback, so a
// multi-line document either applies every movement or none of them.
func ApplyMovementTx(ctx context.Context, tx pgx.Tx, m Movement) (*LedgerEntry, error) {
	// Create the stock row on first movement, then lock it. The upsert makes
	// the row visible to this TX; the FOR UPDATE read serializes concurrent
	// movements on the same pair.
	var levelID int
	err := tx.QueryRow(ctx, `
		INSERT INTO stock_levels (product_id, location_id, quantity)
		VALUES ($1, $2, 0)
		ON CONFLICT (product_id, location_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, m.ProductID, m.LocationID).Scan(&levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock level: %w", mapConflict("apply movement", err))
	}

	var current decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT quantity FROM stock_levels WHERE id = $1 FOR UPDATE",
		levelID,
	).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock level: %w", mapConflict("apply movement", err))
	}

	newQty := current.Add(m.Delta)
	if newQty.IsNegative() {
		sku, code := stockKeyLabels(ctx, tx, m.ProductID, m.LocationID)
		return nil, &InsufficientStockError{
			ProductSKU:   sku,
			LocationCode: code,
			Available:    current,
			Required:     m.Delta.Neg(),
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE stock_levels SET quantity = $1, updated_at = NOW() WHERE id = $2",
		newQty, levelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock level: %w", err)
	}

	var qtyIn, qtyOut decimal.Decimal
	if m.Delta.IsNegative() {
		qtyOut = m.Delta.Neg()
	} else {
		qtyIn = m.Delta
	}

	entry := &LedgerEntry{
		ProductID:     m.ProductID,
		LocationID:    m.LocationID,
		OperationType: m.OperationType,
		Reference:     m.Reference,
		QuantityIn:    qtyIn,
		QuantityOut:   qtyOut,
		Balance:       newQty,
		PartnerID:     m.PartnerID,
		Notes:         m.Notes,
		UserID:        m.UserID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO stock_ledger (product_id, location_id, operation_type, reference,
		                          quantity_in, quantity_out, balance, partner_id, notes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, entry_date
	`, m.ProductID, m.LocationID, string(m.OperationType), m.Reference,
		qtyIn, qtyOut, newQty, m.PartnerID, nullableText(m.Notes), m.UserID,
	).Scan(&entry.ID, &entry.EntryDate)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return entry, nil
}

// ensureLockedQuantityTx creates the stock row for a (product, location)
// pair if absent, then locks it and returns the current quantity. Callers
// that derive a delta from the current quantity use this so the read and the
// later movement share one lock window: a concurrent first receipt for the
// pair must commit or roll back before the quantity is observed.
func ensureLockedQuantityTx(ctx context.Context, tx pgx.Tx, productID, locationID int) (decimal.Decimal, error) {
	var levelID int
	err := tx.QueryRow(ctx, `
		INSERT INTO stock_levels (product_id, location_id, quantity)
		VALUES ($1, $2, 0)
		ON CONFLICT (product_id, location_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, productID, locationID).Scan(&levelID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to upsert stock level: %w", mapConflict("stock check", err))
	}

	var qty decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT quantity FROM stock_levels WHERE id = $1 FOR UPDATE",
		levelID,
	).Scan(&qty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock stock level: %w", mapConflict("stock check", err))
	}
	return qty, nil
}

// lockedQuantityTx reads the current quantity for a (product, location) pair
// under FOR UPDATE, returning zero when no stock row exists yet. Document
// services use it for availability pre-checks before calling the engine.
func lockedQuantityTx(ctx context.Context, tx pgx.Tx, productID, locationID int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT quantity FROM stock_levels
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE
	`, productID, locationID).Scan(&qty)
	if err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read stock level: %w", mapConflict("stock check", err))
	}
	return qty, nil
}

// stockKeyLabels resolves SKU and location code for error messages.
// Falls back to numeric ids if the lookup itself fails.
func stockKeyLabels(ctx context.Context, tx pgx.Tx, productID, locationID int) (string, string) {
	sku := fmt.Sprintf("product %d", productID)
	code := fmt.Sprintf("location %d", locationID)
	_ = tx.QueryRow(ctx, "SELECT sku FROM products WHERE id = $1", productID).Scan(&sku)
	_ = tx.QueryRow(ctx, "SELECT code FROM locations WHERE id = $1", locationID).Scan(&code)
	return sku, code
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
