package core_test

import (
	"context"
	"errors"
	"testing"

	"stockmaster/internal/core"

	"github.com/shopspring/decimal"
)

func TestCatalog_DuplicateSKURejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	_, err := catalog.CreateProduct(ctx, core.ProductInput{SKU: "WID-001", Name: "Duplicate Widget"})
	var validationErr *core.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError for duplicate SKU, got %v", err)
	}

	p, err := catalog.CreateProduct(ctx, core.ProductInput{SKU: "NEW-001", Name: "New Widget"})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if p.UOM != "Unit" || p.Currency != "USD" {
		t.Errorf("Expected defaults Unit/USD, got %s/%s", p.UOM, p.Currency)
	}
}

func TestCatalog_LowStockProducts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	// LOW-001 has min_stock 10; put 4 on hand.
	receiveStock(t, ctx, svc, locStock, prodLowWidget, 4)
	// WID-001 has no minimum and plenty of stock.
	receiveStock(t, ctx, svc, locStock, prodWidgetA, 100)

	products, err := catalog.ListProducts(ctx, true)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 1 || products[0].SKU != "LOW-001" {
		t.Fatalf("Expected only LOW-001 below minimum, got %+v", products)
	}
	if !products[0].LowStock {
		t.Error("Expected LowStock flag set")
	}
	if !products[0].TotalStock.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected total stock 4, got %s", products[0].TotalStock)
	}

	// Sitting exactly at the minimum still counts as low.
	receiveStock(t, ctx, svc, locStock, prodLowWidget, 6)
	products, err = catalog.ListProducts(ctx, true)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 1 || !products[0].TotalStock.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("Expected LOW-001 at its minimum of 10 still listed, got %+v", products)
	}
	if !products[0].LowStock {
		t.Error("Expected LowStock flag set at exactly the minimum")
	}

	// One unit above the minimum and the listing empties.
	receiveStock(t, ctx, svc, locStock, prodLowWidget, 1)
	products, err = catalog.ListProducts(ctx, true)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Expected no low-stock products after replenishment, got %d", len(products))
	}
}

func TestCatalog_DeactivateLocationGuardedByStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool)
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	receiveStock(t, ctx, svc, locShipping, prodWidgetA, 5)

	err := catalog.DeactivateLocation(ctx, locShipping)
	var validationErr *core.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError while stock remains, got %v", err)
	}

	// Count the location down to zero, then deactivation succeeds.
	a, err := svc.adjustments.Create(ctx, core.AdjustmentInput{
		ProductID:  prodWidgetA,
		LocationID: locShipping,
		CountedQty: decimal.Zero,
		Reason:     "clearing location",
	})
	if err != nil {
		t.Fatalf("Create adjustment failed: %v", err)
	}
	if _, err := svc.adjustments.Validate(ctx, a.ID); err != nil {
		t.Fatalf("Validate adjustment failed: %v", err)
	}
	if err := catalog.DeactivateLocation(ctx, locShipping); err != nil {
		t.Fatalf("DeactivateLocation failed after clearing stock: %v", err)
	}

	// Inactive locations disappear from listings and refuse new documents.
	locations, err := catalog.ListLocations(ctx, 0)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	for _, l := range locations {
		if l.ID == locShipping {
			t.Errorf("Deactivated location still listed: %+v", l)
		}
	}
	_, err = svc.receipts.Create(ctx, core.ReceiptInput{
		LocationID: locShipping,
		Lines:      []core.LineInput{{ProductID: prodWidgetA, Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError targeting an inactive location, got %v", err)
	}
}

func TestCatalog_PartnerKindValidated(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	_, err := catalog.CreatePartner(ctx, "Ambiguous Co", "vendor", "", "", "")
	var validationErr *core.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError for bad partner kind, got %v", err)
	}

	p, err := catalog.CreatePartner(ctx, "Fresh Supplier", "supplier", "sales@fresh.example", "", "")
	if err != nil {
		t.Fatalf("CreatePartner failed: %v", err)
	}
	if p.Kind != "supplier" {
		t.Errorf("Expected supplier, got %s", p.Kind)
	}

	suppliers, err := catalog.ListPartners(ctx, "supplier")
	if err != nil {
		t.Fatalf("ListPartners failed: %v", err)
	}
	for _, s := range suppliers {
		if s.Kind != "supplier" {
			t.Errorf("Kind filter leaked %s partner %s", s.Kind, s.Name)
		}
	}
}

func TestCatalog_LocationCodeUniquePerWarehouse(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	_, err := catalog.CreateLocation(ctx, 1, "STOCK", "Duplicate Stock")
	var validationErr *core.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError for duplicate location code, got %v", err)
	}

	// The same code is fine in a different warehouse.
	w, err := catalog.CreateWarehouse(ctx, "WH2", "Second Warehouse", "")
	if err != nil {
		t.Fatalf("CreateWarehouse failed: %v", err)
	}
	if _, err := catalog.CreateLocation(ctx, w.ID, "STOCK", "Second Main Stock"); err != nil {
		t.Fatalf("CreateLocation in second warehouse failed: %v", err)
	}

	// Unknown warehouse surfaces as not found.
	var notFoundErr *core.NotFoundError
	if _, err := catalog.CreateLocation(ctx, 9999, "X", "Nowhere"); !errors.As(err, &notFoundErr) {
		t.Errorf("Expected NotFoundError for unknown warehouse, got %v", err)
	}
}
