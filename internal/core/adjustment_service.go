package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AdjustmentInput is the payload for creating an adjustment.
type AdjustmentInput struct {
	ProductID  int             `json:"product_id"`
	LocationID int             `json:"location_id"`
	CountedQty decimal.Decimal `json:"counted_qty"`
	Reason     string          `json:"reason"`
	UserID     *int            `json:"user_id"`
}

// AdjustmentService reconciles recorded stock with physical counts. The
// recorded quantity captured at creation is informational; Validate re-reads
// the live quantity under lock and corrects against that, so adjustments
// stay accurate even when stock moved between count and validation.
type AdjustmentService interface {
	Create(ctx context.Context, input AdjustmentInput) (*Adjustment, error)
	Validate(ctx context.Context, id int) (*Adjustment, error)
	Cancel(ctx context.Context, id int) (*Adjustment, error)
	Get(ctx context.Context, id int) (*Adjustment, error)
	List(ctx context.Context, state *DocumentState) ([]Adjustment, error)
}

type adjustmentService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	events    Events
}

func NewAdjustmentService(pool *pgxpool.Pool, sequences SequenceService, events Events) AdjustmentService {
	if events == nil {
		events = NopEvents{}
	}
	return &adjustmentService{pool: pool, sequences: sequences, events: events}
}

func (s *adjustmentService) Create(ctx context.Context, input AdjustmentInput) (*Adjustment, error) {
	if input.CountedQty.IsNegative() {
		return nil, &ValidationError{
			Field:   "counted_qty",
			Message: fmt.Sprintf("counted quantity cannot be negative, got %s", input.CountedQty.String()),
		}
	}
	if _, err := resolveLocation(ctx, s.pool, input.LocationID); err != nil {
		return nil, err
	}
	if err := resolveProducts(ctx, s.pool, []LineInput{{ProductID: input.ProductID, Quantity: decimal.NewFromInt(1)}}); err != nil {
		return nil, err
	}

	number, err := s.sequences.NextReference(ctx, PrefixAdjustment)
	if err != nil {
		return nil, err
	}

	// Snapshot for display; Validate re-reads the live quantity under lock.
	var recorded decimal.Decimal
	err = s.pool.QueryRow(ctx,
		"SELECT COALESCE((SELECT quantity FROM stock_levels WHERE product_id = $1 AND location_id = $2), 0)",
		input.ProductID, input.LocationID,
	).Scan(&recorded)
	if err != nil {
		return nil, fmt.Errorf("failed to read current stock: %w", err)
	}

	var adjustmentID int
	err = s.pool.QueryRow(ctx, `
		INSERT INTO adjustments (adjustment_number, product_id, location_id, recorded_qty, counted_qty, difference, reason, state, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'draft', $8)
		RETURNING id
	`, number, input.ProductID, input.LocationID, recorded, input.CountedQty,
		input.CountedQty.Sub(recorded), nullableText(input.Reason), input.UserID).Scan(&adjustmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert adjustment: %w", err)
	}

	s.events.DocumentCreated(ctx, "adjustment", number)
	return s.Get(ctx, adjustmentID)
}

// Validate transitions draft → done. It locks the stock row, treats the live
// quantity as the authoritative recorded value, and applies the difference
// through the movement engine. A zero difference still appends a ledger
// entry so the count itself is on record.
func (s *adjustmentService) Validate(ctx context.Context, id int) (*Adjustment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	var state DocumentState
	var productID, locationID int
	var counted decimal.Decimal
	var reason *string
	var userID *int
	err = tx.QueryRow(ctx, `
		SELECT adjustment_number, state, product_id, location_id, counted_qty, reason, user_id
		FROM adjustments WHERE id = $1 FOR UPDATE
	`, id).Scan(&number, &state, &productID, &locationID, &counted, &reason, &userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "adjustment", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch adjustment %d: %w", id, mapConflict("validate adjustment", err))
	}

	apply, err := checkTransition(number, "validate", state, StateDraft, StateDone)
	if err != nil {
		return nil, err
	}
	if !apply {
		return s.Get(ctx, id)
	}

	live, err := ensureLockedQuantityTx(ctx, tx, productID, locationID)
	if err != nil {
		return nil, err
	}
	difference := counted.Sub(live)

	notes := "stock count"
	if reason != nil && *reason != "" {
		notes = *reason
	}
	entry, err := ApplyMovementTx(ctx, tx, Movement{
		ProductID:     productID,
		LocationID:    locationID,
		Delta:         difference,
		OperationType: OpAdjustment,
		Reference:     number,
		Notes:         notes,
		UserID:        userID,
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE adjustments SET recorded_qty = $1, difference = $2, state = 'done' WHERE id = $3
	`, live, difference, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark adjustment %s done: %w", number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment validation: %w", mapConflict("validate adjustment", err))
	}

	s.events.DocumentValidated(ctx, "adjustment", number, []LedgerEntry{*entry})
	notifyLowStock(ctx, s.pool, s.events, []int{productID})
	return s.Get(ctx, id)
}

// Cancel is allowed only from draft; validated counts are part of history.
func (s *adjustmentService) Cancel(ctx context.Context, id int) (*Adjustment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	var state DocumentState
	err = tx.QueryRow(ctx,
		"SELECT adjustment_number, state FROM adjustments WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&number, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "adjustment", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch adjustment %d: %w", id, mapConflict("cancel adjustment", err))
	}

	apply, err := checkTransition(number, "cancel", state, StateDraft, StateCanceled)
	if err != nil {
		return nil, err
	}
	if apply {
		if _, err = tx.Exec(ctx, "UPDATE adjustments SET state = 'canceled' WHERE id = $1", id); err != nil {
			return nil, fmt.Errorf("failed to cancel adjustment %s: %w", number, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit adjustment cancel: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *adjustmentService) Get(ctx context.Context, id int) (*Adjustment, error) {
	var a Adjustment
	err := s.pool.QueryRow(ctx, `
		SELECT a.id, a.adjustment_number, a.adjustment_date, a.product_id, p.sku,
		       a.location_id, l.code, a.recorded_qty, a.counted_qty, a.difference,
		       COALESCE(a.reason, ''), a.state, a.user_id, a.created_at
		FROM adjustments a
		JOIN products p ON p.id = a.product_id
		JOIN locations l ON l.id = a.location_id
		WHERE a.id = $1
	`, id).Scan(
		&a.ID, &a.AdjustmentNumber, &a.AdjustmentDate, &a.ProductID, &a.ProductSKU,
		&a.LocationID, &a.LocationCode, &a.RecordedQty, &a.CountedQty, &a.Difference,
		&a.Reason, &a.State, &a.UserID, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "adjustment", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch adjustment %d: %w", id, err)
	}
	return &a, nil
}

func (s *adjustmentService) List(ctx context.Context, state *DocumentState) ([]Adjustment, error) {
	query := `
		SELECT a.id, a.adjustment_number, a.adjustment_date, a.product_id, p.sku,
		       a.location_id, l.code, a.recorded_qty, a.counted_qty, a.difference,
		       COALESCE(a.reason, ''), a.state, a.user_id, a.created_at
		FROM adjustments a
		JOIN products p ON p.id = a.product_id
		JOIN locations l ON l.id = a.location_id
	`
	var args []any
	if state != nil {
		query += " WHERE a.state = $1"
		args = append(args, string(*state))
	}
	query += " ORDER BY a.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []Adjustment
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(
			&a.ID, &a.AdjustmentNumber, &a.AdjustmentDate, &a.ProductID, &a.ProductSKU,
			&a.LocationID, &a.LocationCode, &a.RecordedQty, &a.CountedQty, &a.Difference,
			&a.Reason, &a.State, &a.UserID, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjustments = append(adjustments, a)
	}
	return adjustments, nil
}
