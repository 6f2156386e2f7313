package core_test

import (
	"context"
	"os"
	"testing"

	"stockmaster/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Fixture ids seeded by setupTestDB.
const (
	locReceiving  = 1
	locStock      = 2
	locShipping   = 3
	supplierAcme  = 1
	customerNorth = 2
	prodWidgetA   = 1
	prodWidgetB   = 2
	prodLowWidget = 3
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB. Explicit ids keep the fixture constants stable;
	// the setval calls move the serials past them so service-created rows
	// don't collide.
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE stock_ledger, stock_levels,
			receipt_lines, receipts, delivery_lines, deliveries,
			transfer_lines, transfers, adjustments,
			reference_sequences, partners, products, locations, warehouses, users CASCADE;

		INSERT INTO users (id, username, email, password_hash, role) VALUES
		(1, 'tester', 'tester@example.com', 'not-a-real-hash', 'inventory_manager');

		INSERT INTO warehouses (id, code, name) VALUES (1, 'WH1', 'Test Warehouse');

		INSERT INTO locations (id, warehouse_id, code, name) VALUES
		(1, 1, 'RECV',  'Receiving Dock'),
		(2, 1, 'STOCK', 'Main Stock'),
		(3, 1, 'SHIP',  'Shipping Dock');

		INSERT INTO partners (id, name, kind) VALUES
		(1, 'Acme Supplies', 'supplier'),
		(2, 'Northwind Retail', 'customer');

		INSERT INTO products (id, sku, name, min_stock) VALUES
		(1, 'WID-001', 'Widget A', 0),
		(2, 'WID-002', 'Widget B', 0),
		(3, 'LOW-001', 'Low Stock Widget', 10);

		SELECT setval(pg_get_serial_sequence('users', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('warehouses', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('locations', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('partners', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('products', 'id'), 100);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// services bundles the document services most tests need.
type services struct {
	receipts    core.ReceiptService
	deliveries  core.DeliveryService
	transfers   core.TransferService
	adjustments core.AdjustmentService
	stock       core.StockService
}

func newTestServices(pool *pgxpool.Pool) services {
	seq := core.NewSequenceService(pool)
	return services{
		receipts:    core.NewReceiptService(pool, seq, nil),
		deliveries:  core.NewDeliveryService(pool, seq, nil),
		transfers:   core.NewTransferService(pool, seq, nil),
		adjustments: core.NewAdjustmentService(pool, seq, nil),
		stock:       core.NewStockService(pool),
	}
}

func intPtr(i int) *int { return &i }

// receiveStock runs a receipt through its full lifecycle to put qty units of
// a product at a location.
func receiveStock(t *testing.T, ctx context.Context, svc services, locationID, productID int, qty int64) *core.Receipt {
	t.Helper()
	r, err := svc.receipts.Create(ctx, core.ReceiptInput{
		SupplierID: intPtr(supplierAcme),
		LocationID: locationID,
		UserID:     intPtr(1),
		Lines:      []core.LineInput{{ProductID: productID, Quantity: decimal.NewFromInt(qty)}},
	})
	if err != nil {
		t.Fatalf("Create receipt failed: %v", err)
	}
	if _, err := svc.receipts.MarkWaiting(ctx, r.ID); err != nil {
		t.Fatalf("MarkWaiting failed: %v", err)
	}
	if _, err := svc.receipts.MarkReady(ctx, r.ID); err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}
	r, err = svc.receipts.Validate(ctx, r.ID)
	if err != nil {
		t.Fatalf("Validate receipt failed: %v", err)
	}
	return r
}

func stockQty(t *testing.T, ctx context.Context, svc services, productID, locationID int) decimal.Decimal {
	t.Helper()
	qty, err := svc.stock.GetStockByLocation(ctx, productID, locationID)
	if err != nil {
		t.Fatalf("GetStockByLocation failed: %v", err)
	}
	return qty
}

// ledgerSum computes SUM(quantity_in - quantity_out) for one pair straight
// from the database, bypassing the service layer.
func ledgerSum(t *testing.T, ctx context.Context, pool *pgxpool.Pool, productID, locationID int) decimal.Decimal {
	t.Helper()
	var sum decimal.Decimal
	err := pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_in - quantity_out), 0)
		FROM stock_ledger
		WHERE product_id = $1 AND location_id = $2
	`, productID, locationID).Scan(&sum)
	if err != nil {
		t.Fatalf("Failed to sum ledger: %v", err)
	}
	return sum
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestStock_ZeroWithoutMovements(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	qty := stockQty(t, ctx, svc, prodWidgetA, locStock)
	if !qty.IsZero() {
		t.Errorf("Expected zero stock before any movement, got %s", qty)
	}

	levels, err := svc.stock.ListStockLevels(ctx, 0)
	if err != nil {
		t.Fatalf("ListStockLevels failed: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("Expected no stock rows before any movement, got %d", len(levels))
	}
}

func TestStock_IndexMatchesLedger(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locStock, prodWidgetA, 50)
	receiveStock(t, ctx, svc, locStock, prodWidgetA, 25)

	// Take 30 back out through a delivery.
	d, err := svc.deliveries.Create(ctx, core.DeliveryInput{
		CustomerID: intPtr(customerNorth),
		LocationID: locStock,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(30)}},
	})
	if err != nil {
		t.Fatalf("Create delivery failed: %v", err)
	}
	for _, step := range []func(context.Context, int) (*core.Delivery, error){
		svc.deliveries.StartPicking, svc.deliveries.MarkPacking, svc.deliveries.MarkReady, svc.deliveries.Validate,
	} {
		if _, err := step(ctx, d.ID); err != nil {
			t.Fatalf("Delivery step failed: %v", err)
		}
	}

	qty := stockQty(t, ctx, svc, prodWidgetA, locStock)
	if !qty.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Expected 45 on hand (50 + 25 - 30), got %s", qty)
	}
	if sum := ledgerSum(t, ctx, pool, prodWidgetA, locStock); !sum.Equal(qty) {
		t.Errorf("Ledger sum %s does not match stock index %s", sum, qty)
	}

	// The newest entry's balance must equal the index too.
	entries, err := svc.stock.ListLedger(ctx, core.LedgerFilter{ProductID: prodWidgetA, LocationID: locStock})
	if err != nil {
		t.Fatalf("ListLedger failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 ledger entries, got %d", len(entries))
	}
	if !entries[0].Balance.Equal(qty) {
		t.Errorf("Latest balance %s does not match stock index %s", entries[0].Balance, qty)
	}
}

func TestLedger_FiltersAndOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locStock, prodWidgetA, 10)
	receiveStock(t, ctx, svc, locReceiving, prodWidgetB, 20)

	adj, err := svc.adjustments.Create(ctx, core.AdjustmentInput{
		ProductID: prodWidgetA, LocationID: locStock, CountedQty: decimal.NewFromInt(8),
	})
	if err != nil {
		t.Fatalf("Create adjustment failed: %v", err)
	}
	if _, err := svc.adjustments.Validate(ctx, adj.ID); err != nil {
		t.Fatalf("Validate adjustment failed: %v", err)
	}

	// Product filter
	entries, err := svc.stock.ListLedger(ctx, core.LedgerFilter{ProductID: prodWidgetA})
	if err != nil {
		t.Fatalf("ListLedger by product failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries for product A, got %d", len(entries))
	}
	// Newest first: the adjustment on top.
	if entries[0].OperationType != core.OpAdjustment {
		t.Errorf("Expected newest entry to be the adjustment, got %s", entries[0].OperationType)
	}

	// Operation filter
	entries, err = svc.stock.ListLedger(ctx, core.LedgerFilter{OperationType: core.OpReceipt})
	if err != nil {
		t.Fatalf("ListLedger by operation failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 receipt entries, got %d", len(entries))
	}

	// Location filter
	entries, err = svc.stock.ListLedger(ctx, core.LedgerFilter{LocationID: locReceiving})
	if err != nil {
		t.Fatalf("ListLedger by location failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ProductSKU != "WID-002" {
		t.Errorf("Expected exactly the Widget B receipt at RECV, got %+v", entries)
	}

	// Limit
	entries, err = svc.stock.ListLedger(ctx, core.LedgerFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListLedger with limit failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected limit of 1 to be honored, got %d entries", len(entries))
	}
}
