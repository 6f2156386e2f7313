package app

import (
	"context"

	"stockmaster/internal/core"
)

// ApplicationService is the single interface all adapters call. It decouples
// presentation from business logic. Implementations must contain no display
// logic of any kind.
type ApplicationService interface {
	// ── Receipts ─────────────────────────────────────────────────────────────

	CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*core.Receipt, error)
	GetReceipt(ctx context.Context, id int) (*core.Receipt, error)
	ListReceipts(ctx context.Context, state *core.DocumentState) ([]core.Receipt, error)
	// ReceiptAction runs one of the typed workflow actions: mark_waiting,
	// mark_ready, validate, cancel, reset.
	ReceiptAction(ctx context.Context, id int, action string) (*core.Receipt, error)

	// ── Deliveries ───────────────────────────────────────────────────────────

	CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*core.Delivery, error)
	GetDelivery(ctx context.Context, id int) (*core.Delivery, error)
	ListDeliveries(ctx context.Context, state *core.DocumentState) ([]core.Delivery, error)
	// DeliveryAction runs one of: start_picking, mark_packing, mark_ready,
	// validate, cancel, reset.
	DeliveryAction(ctx context.Context, id int, action string) (*core.Delivery, error)

	// ── Transfers ────────────────────────────────────────────────────────────

	CreateTransfer(ctx context.Context, req CreateTransferRequest) (*core.Transfer, error)
	GetTransfer(ctx context.Context, id int) (*core.Transfer, error)
	ListTransfers(ctx context.Context, state *core.DocumentState) ([]core.Transfer, error)
	// TransferAction runs one of: mark_waiting, mark_ready, validate, cancel,
	// reset.
	TransferAction(ctx context.Context, id int, action string) (*core.Transfer, error)

	// ── Adjustments ──────────────────────────────────────────────────────────

	CreateAdjustment(ctx context.Context, req CreateAdjustmentRequest) (*core.Adjustment, error)
	GetAdjustment(ctx context.Context, id int) (*core.Adjustment, error)
	ListAdjustments(ctx context.Context, state *core.DocumentState) ([]core.Adjustment, error)
	// AdjustmentAction runs one of: validate, cancel.
	AdjustmentAction(ctx context.Context, id int, action string) (*core.Adjustment, error)

	// ── Stock & ledger ───────────────────────────────────────────────────────

	GetStockByLocation(ctx context.Context, productID, locationID int) (*StockResult, error)
	ListStockLevels(ctx context.Context, locationID int) ([]core.StockLevel, error)
	ListLedger(ctx context.Context, filter core.LedgerFilter) ([]core.LedgerEntry, error)

	// ── Catalog ──────────────────────────────────────────────────────────────

	CreateProduct(ctx context.Context, input core.ProductInput) (*core.Product, error)
	UpdateProduct(ctx context.Context, id int, input core.ProductInput) (*core.Product, error)
	GetProduct(ctx context.Context, id int) (*core.Product, error)
	ListProducts(ctx context.Context, lowStockOnly bool) ([]core.Product, error)
	CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*core.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]core.Warehouse, error)
	CreateLocation(ctx context.Context, req CreateLocationRequest) (*core.Location, error)
	ListLocations(ctx context.Context, warehouseID int) ([]core.Location, error)
	DeactivateLocation(ctx context.Context, id int) error
	CreatePartner(ctx context.Context, req CreatePartnerRequest) (*core.Partner, error)
	ListPartners(ctx context.Context, kind string) ([]core.Partner, error)

	// ── Reporting ────────────────────────────────────────────────────────────

	GetDashboard(ctx context.Context) (*core.Dashboard, error)

	// ── Users ────────────────────────────────────────────────────────────────

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)
	GetUser(ctx context.Context, userID int) (*core.User, error)
}
