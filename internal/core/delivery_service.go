package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryInput is the payload for creating a delivery.
type DeliveryInput struct {
	CustomerID *int        `json:"customer_id"`
	LocationID int         `json:"location_id"`
	Notes      string      `json:"notes"`
	UserID     *int        `json:"user_id"`
	Lines      []LineInput `json:"lines"`
}

// DeliveryService manages the outgoing-goods lifecycle. Availability is
// pre-checked when picking starts and re-checked at validation; only
// Validate mutates stock.
type DeliveryService interface {
	Create(ctx context.Context, input DeliveryInput) (*Delivery, error)
	StartPicking(ctx context.Context, id int) (*Delivery, error)
	MarkPacking(ctx context.Context, id int) (*Delivery, error)
	MarkReady(ctx context.Context, id int) (*Delivery, error)
	Validate(ctx context.Context, id int) (*Delivery, error)
	Cancel(ctx context.Context, id int) (*Delivery, error)
	Reset(ctx context.Context, id int) (*Delivery, error)
	Get(ctx context.Context, id int) (*Delivery, error)
	List(ctx context.Context, state *DocumentState) ([]Delivery, error)
}

type deliveryService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	events    Events
}

func NewDeliveryService(pool *pgxpool.Pool, sequences SequenceService, events Events) DeliveryService {
	if events == nil {
		events = NopEvents{}
	}
	return &deliveryService{pool: pool, sequences: sequences, events: events}
}

func (s *deliveryService) Create(ctx context.Context, input DeliveryInput) (*Delivery, error) {
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	warehouseID, err := resolveLocation(ctx, s.pool, input.LocationID)
	if err != nil {
		return nil, err
	}
	if err := resolvePartner(ctx, s.pool, input.CustomerID); err != nil {
		return nil, err
	}
	if err := resolveProducts(ctx, s.pool, input.Lines); err != nil {
		return nil, err
	}

	number, err := s.sequences.NextReference(ctx, PrefixDelivery)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var deliveryID int
	err = tx.QueryRow(ctx, `
		INSERT INTO deliveries (delivery_number, customer_id, warehouse_id, location_id, state, notes, user_id)
		VALUES ($1, $2, $3, $4, 'draft', $5, $6)
		RETURNING id
	`, number, input.CustomerID, warehouseID, input.LocationID, nullableText(input.Notes), input.UserID).Scan(&deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert delivery: %w", err)
	}

	for i, l := range input.Lines {
		_, err = tx.Exec(ctx,
			"INSERT INTO delivery_lines (delivery_id, product_id, quantity) VALUES ($1, $2, $3)",
			deliveryID, l.ProductID, l.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert delivery line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delivery creation: %w", err)
	}

	s.events.DocumentCreated(ctx, "delivery", number)
	return s.Get(ctx, deliveryID)
}

// StartPicking transitions draft → picking after confirming every line is
// available at the source location. Nothing is deducted yet; the check
// prevents pickers walking to empty shelves, and Validate re-checks anyway.
func (s *deliveryService) StartPicking(ctx context.Context, id int) (*Delivery, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, locationID, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	apply, err := checkTransition(number, "start picking", state, StateDraft, StatePicking)
	if err != nil {
		return nil, err
	}
	if !apply {
		return s.Get(ctx, id)
	}

	lines, err := fetchLinesQ(ctx, tx, deliveryLinesQuery, id)
	if err != nil {
		return nil, err
	}
	if err := checkAvailabilityTx(ctx, tx, locationID, lines); err != nil {
		return nil, err
	}

	if _, err = tx.Exec(ctx, "UPDATE deliveries SET state = 'picking' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to start picking for delivery %s: %w", number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit start picking: %w", mapConflict("start picking", err))
	}
	return s.Get(ctx, id)
}

func (s *deliveryService) MarkPacking(ctx context.Context, id int) (*Delivery, error) {
	return s.transition(ctx, id, "mark packing", StatePicking, StatePacking)
}

func (s *deliveryService) MarkReady(ctx context.Context, id int) (*Delivery, error) {
	return s.transition(ctx, id, "mark ready", StatePacking, StateReady)
}

// Validate transitions ready → done and deducts every line from the source
// location. Any shortfall aborts the whole delivery; no partial shipping.
func (s *deliveryService) Validate(ctx context.Context, id int) (*Delivery, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var number string
	var state DocumentState
	var locationID int
	var customerID, userID *int
	err = tx.QueryRow(ctx,
		"SELECT delivery_number, state, location_id, customer_id, user_id FROM deliveries WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&number, &state, &locationID, &customerID, &userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "delivery", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch delivery %d: %w", id, mapConflict("validate delivery", err))
	}

	apply, err := checkTransition(number, "validate", state, StateReady, StateDone)
	if err != nil {
		return nil, err
	}
	if !apply {
		return s.Get(ctx, id)
	}

	lines, err := fetchLinesQ(ctx, tx, deliveryLinesQuery, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: fmt.Sprintf("delivery %s has no lines", number)}
	}

	var entries []LedgerEntry
	var productIDs []int
	for _, l := range lines {
		entry, err := ApplyMovementTx(ctx, tx, Movement{
			ProductID:     l.ProductID,
			LocationID:    locationID,
			Delta:         l.Quantity.Neg(),
			OperationType: OpDelivery,
			Reference:     number,
			PartnerID:     customerID,
			UserID:        userID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
		productIDs = append(productIDs, l.ProductID)
	}

	_, err = tx.Exec(ctx, "UPDATE deliveries SET state = 'done' WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark delivery %s done: %w", number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delivery validation: %w", mapConflict("validate delivery", err))
	}

	s.events.DocumentValidated(ctx, "delivery", number, entries)
	notifyLowStock(ctx, s.pool, s.events, productIDs)
	return s.Get(ctx, id)
}

func (s *deliveryService) Cancel(ctx context.Context, id int) (*Delivery, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, _, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if state == StateCanceled {
		return s.Get(ctx, id)
	}
	if state == StateDone {
		return nil, &InvalidStateTransitionError{Document: number, Action: "cancel", Current: state}
	}

	if _, err = tx.Exec(ctx, "UPDATE deliveries SET state = 'canceled' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to cancel delivery %s: %w", number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delivery cancel: %w", err)
	}
	return s.Get(ctx, id)
}

// Reset returns a picking, packing, ready, or canceled delivery to draft.
func (s *deliveryService) Reset(ctx context.Context, id int) (*Delivery, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, _, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	switch state {
	case StateDraft:
		return s.Get(ctx, id)
	case StatePicking, StatePacking, StateReady, StateCanceled:
		// resettable
	default:
		return nil, &InvalidStateTransitionError{Document: number, Action: "reset", Current: state, Required: StatePicking}
	}

	if _, err = tx.Exec(ctx, "UPDATE deliveries SET state = 'draft' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to reset delivery %s: %w", number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delivery reset: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *deliveryService) Get(ctx context.Context, id int) (*Delivery, error) {
	var d Delivery
	err := s.pool.QueryRow(ctx, `
		SELECT d.id, d.delivery_number, d.delivery_date, d.customer_id, COALESCE(p.name, ''),
		       d.warehouse_id, d.location_id, d.state, COALESCE(d.notes, ''), d.user_id, d.created_at
		FROM deliveries d
		LEFT JOIN partners p ON p.id = d.customer_id
		WHERE d.id = $1
	`, id).Scan(
		&d.ID, &d.DeliveryNumber, &d.DeliveryDate, &d.CustomerID, &d.CustomerName,
		&d.WarehouseID, &d.LocationID, &d.State, &d.Notes, &d.UserID, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "delivery", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch delivery %d: %w", id, err)
	}

	lines, err := fetchLinesQ(ctx, s.pool, deliveryLinesQuery, id)
	if err != nil {
		return nil, err
	}
	d.Lines = lines
	return &d, nil
}

func (s *deliveryService) List(ctx context.Context, state *DocumentState) ([]Delivery, error) {
	query := `
		SELECT d.id, d.delivery_number, d.delivery_date, d.customer_id, COALESCE(p.name, ''),
		       d.warehouse_id, d.location_id, d.state, COALESCE(d.notes, ''), d.user_id, d.created_at
		FROM deliveries d
		LEFT JOIN partners p ON p.id = d.customer_id
	`
	var args []any
	if state != nil {
		query += " WHERE d.state = $1"
		args = append(args, string(*state))
	}
	query += " ORDER BY d.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(
			&d.ID, &d.DeliveryNumber, &d.DeliveryDate, &d.CustomerID, &d.CustomerName,
			&d.WarehouseID, &d.LocationID, &d.State, &d.Notes, &d.UserID, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func (s *deliveryService) transition(ctx context.Context, id int, action string, from, to DocumentState) (*Delivery, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, state, _, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	apply, err := checkTransition(number, action, state, from, to)
	if err != nil {
		return nil, err
	}
	if apply {
		if _, err = tx.Exec(ctx, "UPDATE deliveries SET state = $1 WHERE id = $2", string(to), id); err != nil {
			return nil, fmt.Errorf("failed to %s delivery %s: %w", action, number, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit delivery %s: %w", action, err)
		}
	}
	return s.Get(ctx, id)
}

func (s *deliveryService) lockHeader(ctx context.Context, tx pgx.Tx, id int) (string, DocumentState, int, error) {
	var number string
	var state DocumentState
	var locationID int
	err := tx.QueryRow(ctx,
		"SELECT delivery_number, state, location_id FROM deliveries WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&number, &state, &locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", 0, &NotFoundError{Kind: "delivery", Ref: fmt.Sprint(id)}
		}
		return "", "", 0, fmt.Errorf("failed to fetch delivery %d: %w", id, mapConflict("lock delivery", err))
	}
	return number, state, locationID, nil
}

const deliveryLinesQuery = `
	SELECT dl.id, dl.product_id, p.sku, p.name, dl.quantity
	FROM delivery_lines dl
	JOIN products p ON p.id = dl.product_id
	WHERE dl.delivery_id = $1
	ORDER BY dl.id
`
