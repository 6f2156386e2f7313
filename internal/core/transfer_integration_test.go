package core_test

import (
	"context"
	"errors"
	"testing"

	"stockmaster/internal/core"

	"github.com/shopspring/decimal"
)

func TestTransfer_FullLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locStock, prodWidgetA, 10)

	tr, err := svc.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      locStock,
		DestinationLocationID: locShipping,
		UserID:                intPtr(1),
		Lines:                 []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(4)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tr.TransferNumber != "TRF-00001" {
		t.Errorf("Expected TRF-00001, got %s", tr.TransferNumber)
	}

	if tr, err = svc.transfers.MarkWaiting(ctx, tr.ID); err != nil || tr.State != core.StateWaiting {
		t.Fatalf("MarkWaiting: state=%v err=%v", tr.State, err)
	}
	if tr, err = svc.transfers.MarkReady(ctx, tr.ID); err != nil || tr.State != core.StateReady {
		t.Fatalf("MarkReady: state=%v err=%v", tr.State, err)
	}
	if tr, err = svc.transfers.Validate(ctx, tr.ID); err != nil || tr.State != core.StateDone {
		t.Fatalf("Validate: state=%v err=%v", tr.State, err)
	}

	// Conservation: 10 total, split 6 / 4.
	src := stockQty(t, ctx, svc, prodWidgetA, locStock)
	dst := stockQty(t, ctx, svc, prodWidgetA, locShipping)
	if !src.Equal(decimal.NewFromInt(6)) || !dst.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected 6 at source, 4 at destination; got %s / %s", src, dst)
	}
	if total := src.Add(dst); !total.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Transfer must conserve total quantity, got %s", total)
	}

	// Two entries under the same reference: out at source, in at destination.
	outEntries, err := svc.stock.ListLedger(ctx, core.LedgerFilter{OperationType: core.OpTransferOut})
	if err != nil {
		t.Fatalf("ListLedger out failed: %v", err)
	}
	inEntries, err := svc.stock.ListLedger(ctx, core.LedgerFilter{OperationType: core.OpTransferIn})
	if err != nil {
		t.Fatalf("ListLedger in failed: %v", err)
	}
	if len(outEntries) != 1 || len(inEntries) != 1 {
		t.Fatalf("Expected one out and one in entry, got %d / %d", len(outEntries), len(inEntries))
	}
	if outEntries[0].Reference != "TRF-00001" || inEntries[0].Reference != "TRF-00001" {
		t.Errorf("Both entries must carry the transfer number, got %s / %s",
			outEntries[0].Reference, inEntries[0].Reference)
	}
	if outEntries[0].LocationID != locStock || inEntries[0].LocationID != locShipping {
		t.Errorf("Entries landed at wrong locations: out@%d in@%d",
			outEntries[0].LocationID, inEntries[0].LocationID)
	}
}

func TestTransfer_SameSourceAndDestinationRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	_, err := svc.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      locStock,
		DestinationLocationID: locStock,
		Lines:                 []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(1)}},
	})
	var validationErr *core.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError for same source and destination, got %v", err)
	}
}

func TestTransfer_MarkReadyChecksSourceAvailability(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locStock, prodWidgetA, 2)

	tr, err := svc.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      locStock,
		DestinationLocationID: locShipping,
		Lines:                 []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(5)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.transfers.MarkWaiting(ctx, tr.ID); err != nil {
		t.Fatalf("MarkWaiting failed: %v", err)
	}

	_, err = svc.transfers.MarkReady(ctx, tr.ID)
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	// Neither side moved.
	if qty := stockQty(t, ctx, svc, prodWidgetA, locStock); !qty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Source must be untouched, got %s", qty)
	}
	if qty := stockQty(t, ctx, svc, prodWidgetA, locShipping); !qty.IsZero() {
		t.Errorf("Destination must be untouched, got %s", qty)
	}
}

func TestTransfer_CancelBeforeDoneOnly(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locStock, prodWidgetA, 10)

	tr, err := svc.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      locStock,
		DestinationLocationID: locShipping,
		Lines:                 []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(3)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tr, err = svc.transfers.Cancel(ctx, tr.ID); err != nil || tr.State != core.StateCanceled {
		t.Fatalf("Cancel from draft: state=%v err=%v", tr.State, err)
	}

	// A validated transfer cannot be canceled.
	tr2, err := svc.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      locStock,
		DestinationLocationID: locShipping,
		Lines:                 []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(3)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.transfers.MarkWaiting(ctx, tr2.ID); err != nil {
		t.Fatalf("MarkWaiting failed: %v", err)
	}
	if _, err := svc.transfers.MarkReady(ctx, tr2.ID); err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}
	if _, err := svc.transfers.Validate(ctx, tr2.ID); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	_, err = svc.transfers.Cancel(ctx, tr2.ID)
	var transitionErr *core.InvalidStateTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("Expected InvalidStateTransitionError canceling a done transfer, got %v", err)
	}
}

func TestTransfer_Reset(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locStock, prodWidgetA, 10)

	tr, err := svc.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      locStock,
		DestinationLocationID: locShipping,
		Lines:                 []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(3)}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Reset of a draft is a no-op.
	if tr, err = svc.transfers.Reset(ctx, tr.ID); err != nil || tr.State != core.StateDraft {
		t.Fatalf("Reset from draft: state=%v err=%v", tr.State, err)
	}

	if _, err := svc.transfers.MarkWaiting(ctx, tr.ID); err != nil {
		t.Fatalf("MarkWaiting failed: %v", err)
	}
	if tr, err = svc.transfers.Reset(ctx, tr.ID); err != nil || tr.State != core.StateDraft {
		t.Fatalf("Reset from waiting: state=%v err=%v", tr.State, err)
	}

	// A canceled transfer comes back to draft and can restart its workflow.
	if _, err := svc.transfers.Cancel(ctx, tr.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if tr, err = svc.transfers.Reset(ctx, tr.ID); err != nil || tr.State != core.StateDraft {
		t.Fatalf("Reset from canceled: state=%v err=%v", tr.State, err)
	}
	for _, step := range []func(context.Context, int) (*core.Transfer, error){
		svc.transfers.MarkWaiting, svc.transfers.MarkReady, svc.transfers.Validate,
	} {
		if tr, err = step(ctx, tr.ID); err != nil {
			t.Fatalf("Restarted workflow failed: %v", err)
		}
	}
	if tr.State != core.StateDone {
		t.Fatalf("Expected done after restarted workflow, got %v", tr.State)
	}

	// Done transfers stay immutable.
	var transitionErr *core.InvalidStateTransitionError
	if _, err := svc.transfers.Reset(ctx, tr.ID); !errors.As(err, &transitionErr) {
		t.Errorf("Expected reset of done transfer to fail, got %v", err)
	}
}
