package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// InsufficientStockError is returned when a stock decrease would drive a
// (product, location) quantity below zero. Recoverable: the caller must
// reduce the requested quantity or replenish first.
type InsufficientStockError struct {
	ProductSKU   string
	LocationCode string
	Available    decimal.Decimal
	Required     decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s at %s: available %s, required %s",
		e.ProductSKU, e.LocationCode, e.Available.String(), e.Required.String())
}

// InvalidStateTransitionError is returned when a workflow action is invoked
// from a state that does not permit it. Required is empty when the action is
// barred from the current state rather than gated on a single state, as with
// canceling a done document.
type InvalidStateTransitionError struct {
	Document string // document reference or kind
	Action   string
	Current  DocumentState
	Required DocumentState
}

func (e *InvalidStateTransitionError) Error() string {
	if e.Required == "" {
		return fmt.Sprintf("%s: cannot %s from state %q", e.Document, e.Action, e.Current)
	}
	return fmt.Sprintf("%s: cannot %s from state %q (requires %q)",
		e.Document, e.Action, e.Current, e.Required)
}

// ValidationError reports malformed input: non-positive quantities, missing
// references, a transfer whose source equals its destination, and the like.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an absent product, location, partner, or document.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Ref)
}

// ConcurrencyConflictError is returned when the database aborts a transition
// due to lock contention. The whole transition can be retried.
type ConcurrencyConflictError struct {
	Op string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s: concurrent update conflict, retry the operation", e.Op)
}

// conflictSQLStates are PostgreSQL error codes that indicate the transaction
// lost a race rather than hit a genuine data problem.
// 40001 = serialization_failure, 40P01 = deadlock_detected.
var conflictSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
}

// mapConflict converts retriable PostgreSQL failures into
// ConcurrencyConflictError; any other error is returned unchanged.
func mapConflict(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && conflictSQLStates[pgErr.Code] {
		return &ConcurrencyConflictError{Op: op}
	}
	return err
}
