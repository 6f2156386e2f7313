package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReceiptInput is the payload for creating a receipt.
type ReceiptInput struct {
	SupplierID *int        `json:"supplier_id"`
	LocationID int         `json:"location_id"`
	Notes      string      `json:"notes"`
	UserID     *int        `json:"user_id"`
	Lines      []LineInput `json:"lines"`
}

// ReceiptService manages the incoming-goods lifecycle. Validate is the only
// action that touches stock: it increases the destination location by each
// line quantity and appends one ledger entry per line, all in one transaction.
type ReceiptService interface {
	Create(ctx context.Context, input ReceiptInput) (*Receipt, error)
	MarkWaiting(ctx context.Context, id int) (*Receipt, error)
	MarkReady(ctx context.Context, id int) (*Receipt, error)
	Validate(ctx context.Context, id int) (*Receipt, error)
	Cancel(ctx context.Context, id int) (*Receipt, error)
	Reset(ctx context.Context, id int) (*Receipt, error)
	Get(ctx context.Context, id int) (*Receipt, error)
	List(ctx context.Context, state *DocumentState) ([]Receipt, error)
}

type receiptService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	events    Events
}

func NewReceiptService(pool *pgxpool.Pool, sequences SequenceService, events Events) ReceiptService {
	if events == nil {
		events = NopEvents{}
	}
	return &receiptService{pool: pool, sequences: sequences, events: events}
}

func (s *receiptService) Create(ctx context.Context, input ReceiptInput) (*Receipt, error) {
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	warehouseID, err := resolveLocation(ctx, s.pool, input.LocationID)
	if err != nil {
		return nil, err
	}
	if err := resolvePartner(ctx, s.pool, input.SupplierID); err != nil {
		return nil, err
	}
	if err := resolveProducts(ctx, s.pool, input.Lines); err != nil {
		return nil, err
	}

	// Number allocation is auto-committed on the pool: if the insert below
	// rolls back, the number is skipped, never reused.
	number, err := s.sequences.NextReference(ctx, PrefixReceipt)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var receiptID int
	err = tx.QueryRow(ctx, `
		INSERT INTO receipts (receipt_number, supplier_id, warehouse_id, location_id, state, notes, user_id)
		VALUES ($1, $2, $3, $4, 'draft', $5, $6)
		RETURNING id
	`, number, input.SupplierID, warehouseID, input.LocationID, nullableText(input.Notes), input.UserID).Scan(&receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert receipt: %w", err)
	}

	for i, l := range input.Lines {
		_, err = tx.Exec(ctx,
			"INSERT INTO receipt_lines (receipt_id, product_id, quantity) VALUES ($1, $2, $3)",
			receiptID, l.ProductID, l.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert receipt line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit receipt creation: %w", err)
	}

	s.events.DocumentCreated(ctx, "receipt", number)
	return s.Get(ctx, receiptID)
}

func (s *receiptService) MarkWaiting(ctx context.Context, id int) (*Receipt, error) {
	return s.transition(ctx, id, "mark waiting", StateDraft, StateWaiting)
}

func (s *receiptService) MarkReady(ctx context.Context, id int) (*Receipt, error) {
	return s.transition(ctx, id, "mark ready", StateWaiting, StateReady)
}

// Validate transitions ready → done and applies every line to stock. All
// lines land or none do; the receipt state only changes in the same commit.
func (s *receiptService) Validate(ctx context.Context, id int) (*Receipt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	var state DocumentState
	var locationID int
	var supplierID, userID *int
	err = tx.QueryRow(ctx,
		"SELECT receipt_number, state, location_id, supplier_id, user_id FROM receipts WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&number, &state, &locationID, &supplierID, &userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "receipt", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch receipt %d: %w", id, mapConflict("validate receipt", err))
	}

	apply, err := checkTransition(number, "validate", state, StateReady, StateDone)
	if err != nil {
		return nil, err
	}
	if !apply {
		return s.Get(ctx, id)
	}

	lines, err := fetchLinesQ(ctx, tx, receiptLinesQuery, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: fmt.Sprintf("receipt %s has no lines", number)}
	}

	var entries []LedgerEntry
	var productIDs []int
	for _, l := range lines {
		entry, err := ApplyMovementTx(ctx, tx, Movement{
			ProductID:     l.ProductID,
			LocationID:    locationID,
			Delta:         l.Quantity,
			OperationType: OpReceipt,
			Reference:     number,
			PartnerID:     supplierID,
			UserID:        userID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
		productIDs = append(productIDs, l.ProductID)
	}

	_, err = tx.Exec(ctx, "UPDATE receipts SET state = 'done' WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark receipt %s done: %w", number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit receipt validation: %w", mapConflict("validate receipt", err))
	}

	s.events.DocumentValidated(ctx, "receipt", number, entries)
	notifyLowStock(ctx, s.pool, s.events, productIDs)
	return s.Get(ctx, id)
}

func (s *receiptService) Cancel(ctx context.Context, id int) (*Receipt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if state == StateCanceled {
		return s.Get(ctx, id)
	}
	if state == StateDone {
		return nil, &InvalidStateTransitionError{Document: number, Action: "cancel", Current: state}
	}

	if _, err = tx.Exec(ctx, "UPDATE receipts SET state = 'canceled' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to cancel receipt %s: %w", number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit receipt cancel: %w", err)
	}
	return s.Get(ctx, id)
}

// Reset returns a waiting, ready, or canceled receipt to draft. Done receipts
// have already moved stock and stay immutable.
func (s *receiptService) Reset(ctx context.Context, id int) (*Receipt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	switch state {
	case StateDraft:
		return s.Get(ctx, id)
	case StateWaiting, StateReady, StateCanceled:
		// resettable
	default:
		return nil, &InvalidStateTransitionError{Document: number, Action: "reset", Current: state, Required: StateWaiting}
	}

	if _, err = tx.Exec(ctx, "UPDATE receipts SET state = 'draft' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to reset receipt %s: %w", number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit receipt reset: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *receiptService) Get(ctx context.Context, id int) (*Receipt, error) {
	var r Receipt
	err := s.pool.QueryRow(ctx, `
		SELECT r.id, r.receipt_number, r.receipt_date, r.supplier_id, COALESCE(p.name, ''),
		       r.warehouse_id, r.location_id, r.state, COALESCE(r.notes, ''), r.user_id, r.created_at
		FROM receipts r
		LEFT JOIN partners p ON p.id = r.supplier_id
		WHERE r.id = $1
	`, id).Scan(
		&r.ID, &r.ReceiptNumber, &r.ReceiptDate, &r.SupplierID, &r.SupplierName,
		&r.WarehouseID, &r.LocationID, &r.State, &r.Notes, &r.UserID, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "receipt", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch receipt %d: %w", id, err)
	}

	lines, err := fetchLinesQ(ctx, s.pool, receiptLinesQuery, id)
	if err != nil {
		return nil, err
	}
	r.Lines = lines
	return &r, nil
}

func (s *receiptService) List(ctx context.Context, state *DocumentState) ([]Receipt, error) {
	query := `
		SELECT r.id, r.receipt_number, r.receipt_date, r.supplier_id, COALESCE(p.name, ''),
		       r.warehouse_id, r.location_id, r.state, COALESCE(r.notes, ''), r.user_id, r.created_at
		FROM receipts r
		LEFT JOIN partners p ON p.id = r.supplier_id
	`
	var args []any
	if state != nil {
		query += " WHERE r.state = $1"
		args = append(args, string(*state))
	}
	query += " ORDER BY r.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(
			&r.ID, &r.ReceiptNumber, &r.ReceiptDate, &r.SupplierID, &r.SupplierName,
			&r.WarehouseID, &r.LocationID, &r.State, &r.Notes, &r.UserID, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// transition moves the receipt between two stock-neutral states.
func (s *receiptService) transition(ctx context.Context, id int, action string, from, to DocumentState) (*Receipt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	apply, err := checkTransition(number, action, state, from, to)
	if err != nil {
		return nil, err
	}
	if apply {
		if _, err = tx.Exec(ctx, "UPDATE receipts SET state = $1 WHERE id = $2", string(to), id); err != nil {
			return nil, fmt.Errorf("failed to %s receipt %s: %w", action, number, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit receipt %s: %w", action, err)
		}
	}
	return s.Get(ctx, id)
}

func (s *receiptService) lockHeader(ctx context.Context, tx pgx.Tx, id int) (string, DocumentState, error) {
	var number string
	var state DocumentState
	err := tx.QueryRow(ctx,
		"SELECT receipt_number, state FROM receipts WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&number, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", &NotFoundError{Kind: "receipt", Ref: fmt.Sprint(id)}
		}
		return "", "", fmt.Errorf("failed to fetch receipt %d: %w", id, mapConflict("lock receipt", err))
	}
	return number, state, nil
}

const receiptLinesQuery = `
	SELECT rl.id, rl.product_id, p.sku, p.name, rl.quantity
	FROM receipt_lines rl
	JOIN products p ON p.id = rl.product_id
	WHERE rl.receipt_id = $1
	ORDER BY rl.id
`
