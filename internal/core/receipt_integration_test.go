package core_test

import (
	"context"
	"errors"
	"testing"

	"stockmaster/internal/core"

	"github.com/shopspring/decimal"
)

func TestReceipt_FullLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	r, err := svc.receipts.Create(ctx, core.ReceiptInput{
		SupplierID: intPtr(supplierAcme),
		LocationID: locReceiving,
		Notes:      "first inbound",
		UserID:     intPtr(1),
		Lines: []core.LineInput{
			{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(40)},
			{ProductID: prodWidgetB, Quantity: decimal.NewFromInt(15)},
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if r.State != core.StateDraft {
		t.Errorf("Expected draft, got %s", r.State)
	}
	if r.ReceiptNumber != "REC-00001" {
		t.Errorf("Expected REC-00001, got %s", r.ReceiptNumber)
	}
	if r.SupplierName != "Acme Supplies" {
		t.Errorf("Expected supplier name joined, got %q", r.SupplierName)
	}
	if len(r.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(r.Lines))
	}

	// No stock moves before validation.
	if qty := stockQty(t, ctx, svc, prodWidgetA, locReceiving); !qty.IsZero() {
		t.Errorf("Draft receipt must not move stock, got %s", qty)
	}

	if r, err = svc.receipts.MarkWaiting(ctx, r.ID); err != nil || r.State != core.StateWaiting {
		t.Fatalf("MarkWaiting: state=%v err=%v", r.State, err)
	}
	if r, err = svc.receipts.MarkReady(ctx, r.ID); err != nil || r.State != core.StateReady {
		t.Fatalf("MarkReady: state=%v err=%v", r.State, err)
	}
	if r, err = svc.receipts.Validate(ctx, r.ID); err != nil || r.State != core.StateDone {
		t.Fatalf("Validate: state=%v err=%v", r.State, err)
	}

	if qty := stockQty(t, ctx, svc, prodWidgetA, locReceiving); !qty.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected 40 Widget A after validation, got %s", qty)
	}
	if qty := stockQty(t, ctx, svc, prodWidgetB, locReceiving); !qty.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected 15 Widget B after validation, got %s", qty)
	}

	// One ledger entry per line, attributed to the receipt.
	entries, err := svc.stock.ListLedger(ctx, core.LedgerFilter{LocationID: locReceiving})
	if err != nil {
		t.Fatalf("ListLedger failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.OperationType != core.OpReceipt {
			t.Errorf("Expected receipt operation, got %s", e.OperationType)
		}
		if e.Reference != "REC-00001" {
			t.Errorf("Expected reference REC-00001, got %s", e.Reference)
		}
		if e.PartnerID == nil || *e.PartnerID != supplierAcme {
			t.Errorf("Expected supplier attribution on entry, got %v", e.PartnerID)
		}
		if e.UserID == nil || *e.UserID != 1 {
			t.Errorf("Expected user attribution on entry, got %v", e.UserID)
		}
	}
}

func TestReceipt_ValidateFromDraftRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	r, err := svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: locReceiving,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(5)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.receipts.Validate(ctx, r.ID)
	var transitionErr *core.InvalidStateTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("Expected InvalidStateTransitionError validating a draft, got %v", err)
	}
	if transitionErr.Current != core.StateDraft || transitionErr.Required != core.StateReady {
		t.Errorf("Unexpected transition detail: %+v", transitionErr)
	}

	// Nothing moved.
	if qty := stockQty(t, ctx, svc, prodWidgetA, locReceiving); !qty.IsZero() {
		t.Errorf("Rejected validation must not move stock, got %s", qty)
	}
}

func TestReceipt_RevalidateIsNoOp(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	r := receiveStock(t, ctx, svc, locReceiving, prodWidgetA, 10)

	// Second validate reports success without applying anything twice.
	again, err := svc.receipts.Validate(ctx, r.ID)
	if err != nil {
		t.Fatalf("Re-validate failed: %v", err)
	}
	if again.State != core.StateDone {
		t.Errorf("Expected done, got %s", again.State)
	}
	if qty := stockQty(t, ctx, svc, prodWidgetA, locReceiving); !qty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Re-validation must not double-apply, got %s", qty)
	}
	entries, err := svc.stock.ListLedger(ctx, core.LedgerFilter{ProductID: prodWidgetA})
	if err != nil {
		t.Fatalf("ListLedger failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected a single ledger entry, got %d", len(entries))
	}
}

func TestReceipt_CancelAndReset(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	r, err := svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: locReceiving,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(5)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.receipts.MarkWaiting(ctx, r.ID); err != nil {
		t.Fatalf("MarkWaiting failed: %v", err)
	}

	r, err = svc.receipts.Cancel(ctx, r.ID)
	if err != nil || r.State != core.StateCanceled {
		t.Fatalf("Cancel: state=%v err=%v", r.State, err)
	}
	// Cancel again is a no-op.
	if r, err = svc.receipts.Cancel(ctx, r.ID); err != nil || r.State != core.StateCanceled {
		t.Fatalf("Repeated cancel: state=%v err=%v", r.State, err)
	}

	// Reset returns to draft, and the workflow can restart.
	r, err = svc.receipts.Reset(ctx, r.ID)
	if err != nil || r.State != core.StateDraft {
		t.Fatalf("Reset: state=%v err=%v", r.State, err)
	}
	if _, err := svc.receipts.MarkWaiting(ctx, r.ID); err != nil {
		t.Fatalf("MarkWaiting after reset failed: %v", err)
	}
}

func TestReceipt_DoneIsImmutable(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	r := receiveStock(t, ctx, svc, locReceiving, prodWidgetA, 10)

	var transitionErr *core.InvalidStateTransitionError
	if _, err := svc.receipts.Cancel(ctx, r.ID); !errors.As(err, &transitionErr) {
		t.Errorf("Expected cancel of done receipt to fail, got %v", err)
	} else {
		// Cancel is legal from every non-done state, so the error names no
		// single required state.
		if transitionErr.Required != "" {
			t.Errorf("Cancel error must not name a required state, got %q", transitionErr.Required)
		}
		if want := r.ReceiptNumber + `: cannot cancel from state "done"`; transitionErr.Error() != want {
			t.Errorf("Unexpected cancel error rendering: %q", transitionErr.Error())
		}
	}
	if _, err := svc.receipts.Reset(ctx, r.ID); !errors.As(err, &transitionErr) {
		t.Errorf("Expected reset of done receipt to fail, got %v", err)
	}
}

func TestReceipt_CreateRejectsBadInput(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	var validationErr *core.ValidationError
	var notFoundErr *core.NotFoundError

	// No lines.
	_, err := svc.receipts.Create(ctx, core.ReceiptInput{LocationID: locReceiving})
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for empty lines, got %v", err)
	}

	// Zero quantity.
	_, err = svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: locReceiving,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.Zero}},
	})
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for zero quantity, got %v", err)
	}

	// Unknown location.
	_, err = svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: 9999,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError for unknown location, got %v", err)
	}

	// Unknown product.
	_, err = svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: locReceiving,
		Lines:      []core.LineInput{{ProductID: 9999, Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError for unknown product, got %v", err)
	}

	// Unknown supplier.
	_, err = svc.receipts.Create(ctx, core.ReceiptInput{
		SupplierID: intPtr(9999),
		LocationID: locReceiving,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError for unknown supplier, got %v", err)
	}
}
