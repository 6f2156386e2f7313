package app

import (
	"context"
	"fmt"

	"stockmaster/internal/core"
)

// appService implements ApplicationService on top of the core services.
type appService struct {
	receipts    core.ReceiptService
	deliveries  core.DeliveryService
	transfers   core.TransferService
	adjustments core.AdjustmentService
	stock       core.StockService
	catalog     core.CatalogService
	reporting   core.ReportingService
	users       core.UserService
}

// Services bundles the core services the facade delegates to.
type Services struct {
	Receipts    core.ReceiptService
	Deliveries  core.DeliveryService
	Transfers   core.TransferService
	Adjustments core.AdjustmentService
	Stock       core.StockService
	Catalog     core.CatalogService
	Reporting   core.ReportingService
	Users       core.UserService
}

func NewApplicationService(s Services) ApplicationService {
	return &appService{
		receipts:    s.Receipts,
		deliveries:  s.Deliveries,
		transfers:   s.Transfers,
		adjustments: s.Adjustments,
		stock:       s.Stock,
		catalog:     s.Catalog,
		reporting:   s.Reporting,
		users:       s.Users,
	}
}

func toLineInputs(lines []LineRequest) []core.LineInput {
	out := make([]core.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, core.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// unknownAction reports an action name outside a document's typed set.
// Free-form state changes are deliberately not supported.
func unknownAction(kind, action string) error {
	return &core.ValidationError{Field: "action", Message: fmt.Sprintf("unknown %s action %q", kind, action)}
}

// ── Receipts ─────────────────────────────────────────────────────────────────

func (a *appService) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*core.Receipt, error) {
	return a.receipts.Create(ctx, core.ReceiptInput{
		SupplierID: req.SupplierID,
		LocationID: req.LocationID,
		Notes:      req.Notes,
		UserID:     req.UserID,
		Lines:      toLineInputs(req.Lines),
	})
}

func (a *appService) GetReceipt(ctx context.Context, id int) (*core.Receipt, error) {
	return a.receipts.Get(ctx, id)
}

func (a *appService) ListReceipts(ctx context.Context, state *core.DocumentState) ([]core.Receipt, error) {
	return a.receipts.List(ctx, state)
}

func (a *appService) ReceiptAction(ctx context.Context, id int, action string) (*core.Receipt, error) {
	switch action {
	case "mark_waiting":
		return a.receipts.MarkWaiting(ctx, id)
	case "mark_ready":
		return a.receipts.MarkReady(ctx, id)
	case "validate":
		return a.receipts.Validate(ctx, id)
	case "cancel":
		return a.receipts.Cancel(ctx, id)
	case "reset":
		return a.receipts.Reset(ctx, id)
	default:
		return nil, unknownAction("receipt", action)
	}
}

// ── Deliveries ───────────────────────────────────────────────────────────────

func (a *appService) CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*core.Delivery, error) {
	return a.deliveries.Create(ctx, core.DeliveryInput{
		CustomerID: req.CustomerID,
		LocationID: req.LocationID,
		Notes:      req.Notes,
		UserID:     req.UserID,
		Lines:      toLineInputs(req.Lines),
	})
}

func (a *appService) GetDelivery(ctx context.Context, id int) (*core.Delivery, error) {
	return a.deliveries.Get(ctx, id)
}

func (a *appService) ListDeliveries(ctx context.Context, state *core.DocumentState) ([]core.Delivery, error) {
	return a.deliveries.List(ctx, state)
}

func (a *appService) DeliveryAction(ctx context.Context, id int, action string) (*core.Delivery, error) {
	switch action {
	case "start_picking":
		return a.deliveries.StartPicking(ctx, id)
	case "mark_packing":
		return a.deliveries.MarkPacking(ctx, id)
	case "mark_ready":
		return a.deliveries.MarkReady(ctx, id)
	case "validate":
		return a.deliveries.Validate(ctx, id)
	case "cancel":
		return a.deliveries.Cancel(ctx, id)
	case "reset":
		return a.deliveries.Reset(ctx, id)
	default:
		return nil, unknownAction("delivery", action)
	}
}

// ── Transfers ────────────────────────────────────────────────────────────────

func (a *appService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*core.Transfer, error) {
	return a.transfers.Create(ctx, core.TransferInput{
		SourceLocationID:      req.SourceLocationID,
		DestinationLocationID: req.DestinationLocationID,
		Notes:                 req.Notes,
		UserID:                req.UserID,
		Lines:                 toLineInputs(req.Lines),
	})
}

func (a *appService) GetTransfer(ctx context.Context, id int) (*core.Transfer, error) {
	return a.transfers.Get(ctx, id)
}

func (a *appService) ListTransfers(ctx context.Context, state *core.DocumentState) ([]core.Transfer, error) {
	return a.transfers.List(ctx, state)
}

func (a *appService) TransferAction(ctx context.Context, id int, action string) (*core.Transfer, error) {
	switch action {
	case "mark_waiting":
		return a.transfers.MarkWaiting(ctx, id)
	case "mark_ready":
		return a.transfers.MarkReady(ctx, id)
	case "validate":
		return a.transfers.Validate(ctx, id)
	case "cancel":
		return a.transfers.Cancel(ctx, id)
	case "reset":
		return a.transfers.Reset(ctx, id)
	default:
		return nil, unknownAction("transfer", action)
	}
}

// ── Adjustments ──────────────────────────────────────────────────────────────

func (a *appService) CreateAdjustment(ctx context.Context, req CreateAdjustmentRequest) (*core.Adjustment, error) {
	return a.adjustments.Create(ctx, core.AdjustmentInput{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		CountedQty: req.CountedQty,
		Reason:     req.Reason,
		UserID:     req.UserID,
	})
}

func (a *appService) GetAdjustment(ctx context.Context, id int) (*core.Adjustment, error) {
	return a.adjustments.Get(ctx, id)
}

func (a *appService) ListAdjustments(ctx context.Context, state *core.DocumentState) ([]core.Adjustment, error) {
	return a.adjustments.List(ctx, state)
}

func (a *appService) AdjustmentAction(ctx context.Context, id int, action string) (*core.Adjustment, error) {
	switch action {
	case "validate":
		return a.adjustments.Validate(ctx, id)
	case "cancel":
		return a.adjustments.Cancel(ctx, id)
	default:
		return nil, unknownAction("adjustment", action)
	}
}

// ── Stock & ledger ───────────────────────────────────────────────────────────

func (a *appService) GetStockByLocation(ctx context.Context, productID, locationID int) (*StockResult, error) {
	qty, err := a.stock.GetStockByLocation(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	return &StockResult{ProductID: productID, LocationID: locationID, Quantity: qty}, nil
}

func (a *appService) ListStockLevels(ctx context.Context, locationID int) ([]core.StockLevel, error) {
	return a.stock.ListStockLevels(ctx, locationID)
}

func (a *appService) ListLedger(ctx context.Context, filter core.LedgerFilter) ([]core.LedgerEntry, error) {
	return a.stock.ListLedger(ctx, filter)
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (a *appService) CreateProduct(ctx context.Context, input core.ProductInput) (*core.Product, error) {
	return a.catalog.CreateProduct(ctx, input)
}

func (a *appService) UpdateProduct(ctx context.Context, id int, input core.ProductInput) (*core.Product, error) {
	return a.catalog.UpdateProduct(ctx, id, input)
}

func (a *appService) GetProduct(ctx context.Context, id int) (*core.Product, error) {
	return a.catalog.GetProduct(ctx, id)
}

func (a *appService) ListProducts(ctx context.Context, lowStockOnly bool) ([]core.Product, error) {
	return a.catalog.ListProducts(ctx, lowStockOnly)
}

func (a *appService) CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*core.Warehouse, error) {
	return a.catalog.CreateWarehouse(ctx, req.Code, req.Name, req.Address)
}

func (a *appService) ListWarehouses(ctx context.Context) ([]core.Warehouse, error) {
	return a.catalog.ListWarehouses(ctx)
}

func (a *appService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*core.Location, error) {
	return a.catalog.CreateLocation(ctx, req.WarehouseID, req.Code, req.Name)
}

func (a *appService) ListLocations(ctx context.Context, warehouseID int) ([]core.Location, error) {
	return a.catalog.ListLocations(ctx, warehouseID)
}

func (a *appService) DeactivateLocation(ctx context.Context, id int) error {
	return a.catalog.DeactivateLocation(ctx, id)
}

func (a *appService) CreatePartner(ctx context.Context, req CreatePartnerRequest) (*core.Partner, error) {
	return a.catalog.CreatePartner(ctx, req.Name, req.Kind, req.Email, req.Phone, req.Address)
}

func (a *appService) ListPartners(ctx context.Context, kind string) ([]core.Partner, error) {
	return a.catalog.ListPartners(ctx, kind)
}

// ── Reporting ────────────────────────────────────────────────────────────────

func (a *appService) GetDashboard(ctx context.Context) (*core.Dashboard, error) {
	return a.reporting.GetDashboard(ctx)
}

// ── Users ────────────────────────────────────────────────────────────────────

func (a *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := a.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (a *appService) GetUser(ctx context.Context, userID int) (*core.User, error) {
	return a.users.GetByID(ctx, userID)
}
