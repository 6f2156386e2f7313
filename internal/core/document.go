package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// single-row helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// checkTransition decides whether a workflow action must run. Re-invoking an
// action whose target state already holds is a satisfied no-op (false, nil);
// any other state mismatch is an InvalidStateTransitionError.
func checkTransition(doc, action string, current, from, to DocumentState) (bool, error) {
	if current == to {
		return false, nil
	}
	if current != from {
		return false, &InvalidStateTransitionError{Document: doc, Action: action, Current: current, Required: from}
	}
	return true, nil
}

// validateLines rejects empty line sets and non-positive quantities.
func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "lines", Message: "document must have at least one line"}
	}
	for i, l := range lines {
		if l.ProductID == 0 {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].product_id", i), Message: "product is required"}
		}
		if !l.Quantity.IsPositive() {
			return &ValidationError{
				Field:   fmt.Sprintf("lines[%d].quantity", i),
				Message: fmt.Sprintf("quantity must be positive, got %s", l.Quantity.String()),
			}
		}
	}
	return nil
}

// resolveLocation confirms a location exists and is active, returning its
// warehouse id so documents can denormalize it.
func resolveLocation(ctx context.Context, q pgxQuerier, locationID int) (int, error) {
	var warehouseID int
	var isActive bool
	err := q.QueryRow(ctx,
		"SELECT warehouse_id, is_active FROM locations WHERE id = $1",
		locationID,
	).Scan(&warehouseID, &isActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, &NotFoundError{Kind: "location", Ref: fmt.Sprint(locationID)}
		}
		return 0, fmt.Errorf("failed to resolve location %d: %w", locationID, err)
	}
	if !isActive {
		return 0, &ValidationError{Field: "location_id", Message: fmt.Sprintf("location %d is inactive", locationID)}
	}
	return warehouseID, nil
}

// resolveProducts verifies every line references an active product.
func resolveProducts(ctx context.Context, q pgxQuerier, lines []LineInput) error {
	for _, l := range lines {
		var isActive bool
		err := q.QueryRow(ctx, "SELECT is_active FROM products WHERE id = $1", l.ProductID).Scan(&isActive)
		if err != nil {
			if err == pgx.ErrNoRows {
				return &NotFoundError{Kind: "product", Ref: fmt.Sprint(l.ProductID)}
			}
			return fmt.Errorf("failed to resolve product %d: %w", l.ProductID, err)
		}
		if !isActive {
			return &ValidationError{Field: "product_id", Message: fmt.Sprintf("product %d is inactive", l.ProductID)}
		}
	}
	return nil
}

// resolvePartner confirms a referenced partner exists.
func resolvePartner(ctx context.Context, q pgxQuerier, partnerID *int) error {
	if partnerID == nil {
		return nil
	}
	var id int
	err := q.QueryRow(ctx, "SELECT id FROM partners WHERE id = $1", *partnerID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &NotFoundError{Kind: "partner", Ref: fmt.Sprint(*partnerID)}
		}
		return fmt.Errorf("failed to resolve partner %d: %w", *partnerID, err)
	}
	return nil
}

// fetchLinesQ loads document lines with product identifiers joined in.
// The query must select (id, product_id, sku, name, quantity).
func fetchLinesQ(ctx context.Context, q pgxRowQuerier, query string, docID int) ([]DocumentLine, error) {
	rows, err := q.Query(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query document lines: %w", err)
	}
	defer rows.Close()

	var lines []DocumentLine
	for rows.Next() {
		var l DocumentLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductSKU, &l.ProductName, &l.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan document line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// checkAvailabilityTx verifies every line can be taken from locationID,
// locking the stock rows it reads. Used as the pre-check when a delivery
// enters picking or a transfer enters ready; validate re-checks through the
// movement engine anyway.
func checkAvailabilityTx(ctx context.Context, tx pgx.Tx, locationID int, lines []DocumentLine) error {
	for _, l := range lines {
		available, err := lockedQuantityTx(ctx, tx, l.ProductID, locationID)
		if err != nil {
			return err
		}
		if available.LessThan(l.Quantity) {
			var code string
			_ = tx.QueryRow(ctx, "SELECT code FROM locations WHERE id = $1", locationID).Scan(&code)
			return &InsufficientStockError{
				ProductSKU:   l.ProductSKU,
				LocationCode: code,
				Available:    available,
				Required:     l.Quantity,
			}
		}
	}
	return nil
}

// notifyLowStock compares each product's total stock against its minimum and
// fires the event sink for products at or below it. Runs after commit;
// lookup failures are swallowed because notification must not fail the
// operation that triggered it.
func notifyLowStock(ctx context.Context, q pgxQuerier, events Events, productIDs []int) {
	seen := make(map[int]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		var sku string
		var total, minStock decimal.Decimal
		err := q.QueryRow(ctx, `
			SELECT p.sku, COALESCE(SUM(sl.quantity), 0), p.min_stock
			FROM products p
			LEFT JOIN stock_levels sl ON sl.product_id = p.id
			WHERE p.id = $1
			GROUP BY p.id
		`, id).Scan(&sku, &total, &minStock)
		if err != nil {
			continue
		}
		if minStock.IsPositive() && total.LessThanOrEqual(minStock) {
			events.LowStockDetected(ctx, sku, total, minStock)
		}
	}
}
