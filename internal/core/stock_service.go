package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// defaultLedgerLimit bounds unfiltered ledger listings.
const defaultLedgerLimit = 100

// StockService exposes read-only views over the stock index and the ledger.
// All writes go through the movement engine inside document transactions.
type StockService interface {
	// GetStockByLocation returns the current quantity for one
	// (product, location) pair, zero when no stock row exists yet.
	GetStockByLocation(ctx context.Context, productID, locationID int) (decimal.Decimal, error)
	ListStockLevels(ctx context.Context, locationID int) ([]StockLevel, error)
	ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
}

type stockService struct {
	pool *pgxpool.Pool
}

func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

func (s *stockService) GetStockByLocation(ctx context.Context, productID, locationID int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := s.pool.QueryRow(ctx,
		"SELECT quantity FROM stock_levels WHERE product_id = $1 AND location_id = $2",
		productID, locationID,
	).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to fetch stock level: %w", err)
	}
	return qty, nil
}

// ListStockLevels returns current quantities, optionally scoped to one
// location (locationID = 0 lists everything).
func (s *stockService) ListStockLevels(ctx context.Context, locationID int) ([]StockLevel, error) {
	query := `
		SELECT sl.product_id, p.sku, p.name, sl.location_id, l.code, sl.quantity, sl.updated_at
		FROM stock_levels sl
		JOIN products p ON p.id = sl.product_id
		JOIN locations l ON l.id = sl.location_id
	`
	var args []any
	if locationID != 0 {
		query += " WHERE sl.location_id = $1"
		args = append(args, locationID)
	}
	query += " ORDER BY p.sku, l.code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(
			&sl.ProductID, &sl.ProductSKU, &sl.ProductName,
			&sl.LocationID, &sl.LocationCode, &sl.Quantity, &sl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, nil
}

// ListLedger returns movement history newest first.
func (s *stockService) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	query := `
		SELECT le.id, le.entry_date, le.product_id, p.sku, le.location_id, l.code,
		       le.operation_type, le.reference, le.quantity_in, le.quantity_out, le.balance,
		       le.partner_id, COALESCE(le.notes, ''), le.user_id
		FROM stock_ledger le
		JOIN products p ON p.id = le.product_id
		JOIN locations l ON l.id = le.location_id
	`
	var conds []string
	var args []any
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("le.product_id = $%d", len(args)))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID)
		conds = append(conds, fmt.Sprintf("le.location_id = $%d", len(args)))
	}
	if filter.OperationType != "" {
		args = append(args, string(filter.OperationType))
		conds = append(conds, fmt.Sprintf("le.operation_type = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY le.entry_date DESC, le.id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock ledger: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.EntryDate, &e.ProductID, &e.ProductSKU, &e.LocationID, &e.LocationCode,
			&e.OperationType, &e.Reference, &e.QuantityIn, &e.QuantityOut, &e.Balance,
			&e.PartnerID, &e.Notes, &e.UserID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
