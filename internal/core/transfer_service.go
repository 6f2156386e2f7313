package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransferInput is the payload for creating a transfer.
type TransferInput struct {
	SourceLocationID      int         `json:"source_location_id"`
	DestinationLocationID int         `json:"destination_location_id"`
	Notes                 string      `json:"notes"`
	UserID                *int        `json:"user_id"`
	Lines                 []LineInput `json:"lines"`
}

// TransferService manages internal stock moves between two locations.
// Validation writes two ledger entries per line, transfer_out at the source
// then transfer_in at the destination, under one reference in one
// transaction, so the total quantity across locations never changes.
type TransferService interface {
	Create(ctx context.Context, input TransferInput) (*Transfer, error)
	MarkWaiting(ctx context.Context, id int) (*Transfer, error)
	MarkReady(ctx context.Context, id int) (*Transfer, error)
	Validate(ctx context.Context, id int) (*Transfer, error)
	Cancel(ctx context.Context, id int) (*Transfer, error)
	Reset(ctx context.Context, id int) (*Transfer, error)
	Get(ctx context.Context, id int) (*Transfer, error)
	List(ctx context.Context, state *DocumentState) ([]Transfer, error)
}

type transferService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	events    Events
}

func NewTransferService(pool *pgxpool.Pool, sequences SequenceService, events Events) TransferService {
	if events == nil {
		events = NopEvents{}
	}
	return &transferService{pool: pool, sequences: sequences, events: events}
}

func (s *transferService) Create(ctx context.Context, input TransferInput) (*Transfer, error) {
	if input.SourceLocationID == input.DestinationLocationID {
		return nil, &ValidationError{
			Field:   "destination_location_id",
			Message: "source and destination locations must differ",
		}
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	if _, err := resolveLocation(ctx, s.pool, input.SourceLocationID); err != nil {
		return nil, err
	}
	if _, err := resolveLocation(ctx, s.pool, input.DestinationLocationID); err != nil {
		return nil, err
	}
	if err := resolveProducts(ctx, s.pool, input.Lines); err != nil {
		return nil, err
	}

	number, err := s.sequences.NextReference(ctx, PrefixTransfer)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var transferID int
	err = tx.QueryRow(ctx, `
		INSERT INTO transfers (transfer_number, source_location_id, destination_location_id, state, notes, user_id)
		VALUES ($1, $2, $3, 'draft', $4, $5)
		RETURNING id
	`, number, input.SourceLocationID, input.DestinationLocationID, nullableText(input.Notes), input.UserID).Scan(&transferID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", err)
	}

	for i, l := range input.Lines {
		_, err = tx.Exec(ctx,
			"INSERT INTO transfer_lines (transfer_id, product_id, quantity) VALUES ($1, $2, $3)",
			transferID, l.ProductID, l.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transfer line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer creation: %w", err)
	}

	s.events.DocumentCreated(ctx, "transfer", number)
	return s.Get(ctx, transferID)
}

func (s *transferService) MarkWaiting(ctx context.Context, id int) (*Transfer, error) {
	return s.transition(ctx, id, "mark waiting", StateDraft, StateWaiting)
}

// MarkReady transitions waiting → ready after confirming source availability
// for every line. Stock does not move until Validate.
func (s *transferService) MarkReady(ctx context.Context, id int) (*Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	hdr, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	apply, err := checkTransition(hdr.number, "mark ready", hdr.state, StateWaiting, StateReady)
	if err != nil {
		return nil, err
	}
	if !apply {
		return s.Get(ctx, id)
	}

	lines, err := fetchLinesQ(ctx, tx, transferLinesQuery, id)
	if err != nil {
		return nil, err
	}
	if err := checkAvailabilityTx(ctx, tx, hdr.sourceID, lines); err != nil {
		return nil, err
	}

	if _, err = tx.Exec(ctx, "UPDATE transfers SET state = 'ready' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to mark transfer %s ready: %w", hdr.number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit mark ready: %w", mapConflict("mark ready", err))
	}
	return s.Get(ctx, id)
}

// Validate transitions ready → done and moves every line out of the source
// and into the destination. Both movements of a line share the transfer
// number; a shortfall at the source aborts the entire transfer.
func (s *transferService) Validate(ctx context.Context, id int) (*Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	hdr, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	apply, err := checkTransition(hdr.number, "validate", hdr.state, StateReady, StateDone)
	if err != nil {
		return nil, err
	}
	if !apply {
		return s.Get(ctx, id)
	}

	lines, err := fetchLinesQ(ctx, tx, transferLinesQuery, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: fmt.Sprintf("transfer %s has no lines", hdr.number)}
	}

	var entries []LedgerEntry
	var productIDs []int
	for _, l := range lines {
		out, err := ApplyMovementTx(ctx, tx, Movement{
			ProductID:     l.ProductID,
			LocationID:    hdr.sourceID,
			Delta:         l.Quantity.Neg(),
			OperationType: OpTransferOut,
			Reference:     hdr.number,
			UserID:        hdr.userID,
		})
		if err != nil {
			return nil, err
		}
		in, err := ApplyMovementTx(ctx, tx, Movement{
			ProductID:     l.ProductID,
			LocationID:    hdr.destinationID,
			Delta:         l.Quantity,
			OperationType: OpTransferIn,
			Reference:     hdr.number,
			UserID:        hdr.userID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, *out, *in)
		productIDs = append(productIDs, l.ProductID)
	}

	_, err = tx.Exec(ctx, "UPDATE transfers SET state = 'done' WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark transfer %s done: %w", hdr.number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer validation: %w", mapConflict("validate transfer", err))
	}

	s.events.DocumentValidated(ctx, "transfer", hdr.number, entries)
	notifyLowStock(ctx, s.pool, s.events, productIDs)
	return s.Get(ctx, id)
}

func (s *transferService) Cancel(ctx context.Context, id int) (*Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	hdr, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if hdr.state == StateCanceled {
		return s.Get(ctx, id)
	}
	if hdr.state == StateDone {
		return nil, &InvalidStateTransitionError{Document: hdr.number, Action: "cancel", Current: hdr.state}
	}

	if _, err = tx.Exec(ctx, "UPDATE transfers SET state = 'canceled' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to cancel transfer %s: %w", hdr.number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer cancel: %w", err)
	}
	return s.Get(ctx, id)
}

// Reset returns a waiting, ready, or canceled transfer to draft. Done
// transfers have already moved stock and stay immutable.
func (s *transferService) Reset(ctx context.Context, id int) (*Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	hdr, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	switch hdr.state {
	case StateDraft:
		return s.Get(ctx, id)
	case StateWaiting, StateReady, StateCanceled:
		// resettable
	default:
		return nil, &InvalidStateTransitionError{Document: hdr.number, Action: "reset", Current: hdr.state, Required: StateWaiting}
	}

	if _, err = tx.Exec(ctx, "UPDATE transfers SET state = 'draft' WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to reset transfer %s: %w", hdr.number, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer reset: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *transferService) Get(ctx context.Context, id int) (*Transfer, error) {
	var t Transfer
	err := s.pool.QueryRow(ctx, `
		SELECT t.id, t.transfer_number, t.transfer_date,
		       t.source_location_id, src.code, t.destination_location_id, dst.code,
		       t.state, COALESCE(t.notes, ''), t.user_id, t.created_at
		FROM transfers t
		JOIN locations src ON src.id = t.source_location_id
		JOIN locations dst ON dst.id = t.destination_location_id
		WHERE t.id = $1
	`, id).Scan(
		&t.ID, &t.TransferNumber, &t.TransferDate,
		&t.SourceLocationID, &t.SourceLocationCode, &t.DestinationLocationID, &t.DestLocationCode,
		&t.State, &t.Notes, &t.UserID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "transfer", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch transfer %d: %w", id, err)
	}

	lines, err := fetchLinesQ(ctx, s.pool, transferLinesQuery, id)
	if err != nil {
		return nil, err
	}
	t.Lines = lines
	return &t, nil
}

func (s *transferService) List(ctx context.Context, state *DocumentState) ([]Transfer, error) {
	query := `
		SELECT t.id, t.transfer_number, t.transfer_date,
		       t.source_location_id, src.code, t.destination_location_id, dst.code,
		       t.state, COALESCE(t.notes, ''), t.user_id, t.created_at
		FROM transfers t
		JOIN locations src ON src.id = t.source_location_id
		JOIN locations dst ON dst.id = t.destination_location_id
	`
	var args []any
	if state != nil {
		query += " WHERE t.state = $1"
		args = append(args, string(*state))
	}
	query += " ORDER BY t.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(
			&t.ID, &t.TransferNumber, &t.TransferDate,
			&t.SourceLocationID, &t.SourceLocationCode, &t.DestinationLocationID, &t.DestLocationCode,
			&t.State, &t.Notes, &t.UserID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, nil
}

func (s *transferService) transition(ctx context.Context, id int, action string, from, to DocumentState) (*Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	hdr, err := s.lockHeader(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	apply, err := checkTransition(hdr.number, action, hdr.state, from, to)
	if err != nil {
		return nil, err
	}
	if apply {
		if _, err = tx.Exec(ctx, "UPDATE transfers SET state = $1 WHERE id = $2", string(to), id); err != nil {
			return nil, fmt.Errorf("failed to %s transfer %s: %w", action, hdr.number, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit transfer %s: %w", action, err)
		}
	}
	return s.Get(ctx, id)
}

type transferHeader struct {
	number        string
	state         DocumentState
	sourceID      int
	destinationID int
	userID        *int
}

func (s *transferService) lockHeader(ctx context.Context, tx pgx.Tx, id int) (*transferHeader, error) {
	var h transferHeader
	err := tx.QueryRow(ctx, `
		SELECT transfer_number, state, source_location_id, destination_location_id, user_id
		FROM transfers WHERE id = $1 FOR UPDATE
	`, id).Scan(&h.number, &h.state, &h.sourceID, &h.destinationID, &h.userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "transfer", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch transfer %d: %w", id, mapConflict("lock transfer", err))
	}
	return &h, nil
}

const transferLinesQuery = `
	SELECT tl.id, tl.product_id, p.sku, p.name, tl.quantity
	FROM transfer_lines tl
	JOIN products p ON p.id = tl.product_id
	WHERE tl.transfer_id = $1
	ORDER BY tl.id
`
