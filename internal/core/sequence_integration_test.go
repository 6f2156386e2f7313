package core_test

import (
	"context"
	"sync"
	"testing"

	"stockmaster/internal/core"

	"github.com/shopspring/decimal"
)

func TestSequence_FormatAndIncrement(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seq := core.NewSequenceService(pool)
	ctx := context.Background()

	first, err := seq.NextReference(ctx, core.PrefixReceipt)
	if err != nil {
		t.Fatalf("NextReference failed: %v", err)
	}
	if first != "REC-00001" {
		t.Errorf("Expected REC-00001, got %s", first)
	}
	second, err := seq.NextReference(ctx, core.PrefixReceipt)
	if err != nil {
		t.Fatalf("NextReference failed: %v", err)
	}
	if second != "REC-00002" {
		t.Errorf("Expected REC-00002, got %s", second)
	}
}

func TestSequence_PrefixesAreIndependent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seq := core.NewSequenceService(pool)
	ctx := context.Background()

	if _, err := seq.NextReference(ctx, core.PrefixReceipt); err != nil {
		t.Fatalf("NextReference failed: %v", err)
	}
	got, err := seq.NextReference(ctx, core.PrefixDelivery)
	if err != nil {
		t.Fatalf("NextReference failed: %v", err)
	}
	if got != "DEL-00001" {
		t.Errorf("Delivery counter must not share the receipt counter, got %s", got)
	}
}

// An allocated number that never makes it onto a document stays burned: the
// counter lives outside document transactions, so later documents skip past
// it instead of reusing it.
func TestSequence_AbandonedNumberIsNotReused(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	seq := core.NewSequenceService(pool)
	ctx := context.Background()

	burned, err := seq.NextReference(ctx, core.PrefixReceipt)
	if err != nil {
		t.Fatalf("NextReference failed: %v", err)
	}
	if burned != "REC-00001" {
		t.Fatalf("Expected REC-00001 allocated, got %s", burned)
	}

	r, err := svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: locReceiving,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("Create receipt failed: %v", err)
	}
	if r.ReceiptNumber != "REC-00002" {
		t.Errorf("Expected the abandoned number skipped, got %s", r.ReceiptNumber)
	}
}

func TestSequence_ConcurrentAllocationsAreUnique(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seq := core.NewSequenceService(pool)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := seq.NextReference(ctx, core.PrefixTransfer)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[ref] {
				t.Errorf("Duplicate reference allocated: %s", ref)
			}
			seen[ref] = true
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("NextReference failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != workers {
		t.Errorf("Expected %d unique references, got %d", workers, len(seen))
	}
}
