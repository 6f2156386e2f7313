package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentState is a workflow state shared by all four document types.
// Each type uses a subset; see the service for the exact transition graph.
type DocumentState string

const (
	StateDraft    DocumentState = "draft"
	StateWaiting  DocumentState = "waiting"
	StatePicking  DocumentState = "picking"
	StatePacking  DocumentState = "packing"
	StateReady    DocumentState = "ready"
	StateDone     DocumentState = "done"
	StateCanceled DocumentState = "canceled"
)

// OperationType classifies a stock ledger entry.
type OperationType string

const (
	OpReceipt     OperationType = "receipt"
	OpDelivery    OperationType = "delivery"
	OpTransferIn  OperationType = "transfer_in"
	OpTransferOut OperationType = "transfer_out"
	OpAdjustment  OperationType = "adjustment"
)

// Reference number prefixes, one per document type.
const (
	PrefixReceipt    = "REC"
	PrefixDelivery   = "DEL"
	PrefixTransfer   = "TRF"
	PrefixAdjustment = "ADJ"
)

// Product is a stockable item identified by SKU. TotalStock and LowStock are
// derived from stock_levels at read time, never stored.
type Product struct {
	ID         int             `json:"id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	UOM        string          `json:"uom"`
	MinStock   decimal.Decimal `json:"min_stock"`
	MaxStock   decimal.Decimal `json:"max_stock"`
	ReorderQty decimal.Decimal `json:"reorder_qty"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	Currency   string          `json:"currency"`
	IsActive   bool            `json:"is_active"`
	TotalStock decimal.Decimal `json:"total_stock"`
	LowStock   bool            `json:"low_stock"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Warehouse is a physical site containing locations.
type Warehouse struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is a storage position inside exactly one warehouse.
type Location struct {
	ID            int       `json:"id"`
	WarehouseID   int       `json:"warehouse_id"`
	WarehouseCode string    `json:"warehouse_code"` // joined from warehouses
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Partner is a supplier or customer referenced by receipts and deliveries.
type Partner struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // supplier | customer
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// StockLevel is the current quantity of one product at one location,
// joined with product and location identifiers for display.
type StockLevel struct {
	ProductID    int             `json:"product_id"`
	ProductSKU   string          `json:"product_sku"`
	ProductName  string          `json:"product_name"`
	LocationID   int             `json:"location_id"`
	LocationCode string          `json:"location_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LedgerEntry is one immutable stock movement record. Balance is the
// stock_levels quantity immediately after this entry was applied.
type LedgerEntry struct {
	ID            int             `json:"id"`
	EntryDate     time.Time       `json:"entry_date"`
	ProductID     int             `json:"product_id"`
	ProductSKU    string          `json:"product_sku"` // joined from products
	LocationID    int             `json:"location_id"`
	LocationCode  string          `json:"location_code"` // joined from locations
	OperationType OperationType   `json:"operation_type"`
	Reference     string          `json:"reference"`
	QuantityIn    decimal.Decimal `json:"quantity_in"`
	QuantityOut   decimal.Decimal `json:"quantity_out"`
	Balance       decimal.Decimal `json:"balance"`
	PartnerID     *int            `json:"partner_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	UserID        *int            `json:"user_id,omitempty"`
}

// LedgerFilter narrows ListLedger results. Zero values mean no filter.
type LedgerFilter struct {
	ProductID     int
	LocationID    int
	OperationType OperationType
	Limit         int
}

// DocumentLine is one product row on a receipt, delivery, or transfer.
type DocumentLine struct {
	ID          int             `json:"id"`
	ProductID   int             `json:"product_id"`
	ProductSKU  string          `json:"product_sku"`  // joined from products
	ProductName string          `json:"product_name"` // joined from products
	Quantity    decimal.Decimal `json:"quantity"`
}

// LineInput is the caller-supplied form of a document line.
type LineInput struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Receipt records incoming stock into one location.
//
// State progresses through the machine:
//
//	draft → waiting → ready → done
//
// Cancel is allowed from any state except done. Reset back to draft is
// allowed from waiting, ready, and canceled.
type Receipt struct {
	ID            int            `json:"id"`
	ReceiptNumber string         `json:"receipt_number"`
	ReceiptDate   time.Time      `json:"receipt_date"`
	SupplierID    *int           `json:"supplier_id,omitempty"`
	SupplierName  string         `json:"supplier_name,omitempty"` // joined from partners
	WarehouseID   int            `json:"warehouse_id"`
	LocationID    int            `json:"location_id"`
	State         DocumentState  `json:"state"`
	Notes         string         `json:"notes"`
	UserID        *int           `json:"user_id,omitempty"`
	Lines         []DocumentLine `json:"lines"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Delivery records outgoing stock from one location.
//
// State progresses through the machine:
//
//	draft → picking → packing → ready → done
//
// Cancel is allowed from any state except done. Reset back to draft is
// allowed from picking, packing, ready, and canceled.
type Delivery struct {
	ID             int            `json:"id"`
	DeliveryNumber string         `json:"delivery_number"`
	DeliveryDate   time.Time      `json:"delivery_date"`
	CustomerID     *int           `json:"customer_id,omitempty"`
	CustomerName   string         `json:"customer_name,omitempty"` // joined from partners
	WarehouseID    int            `json:"warehouse_id"`
	LocationID     int            `json:"location_id"`
	State          DocumentState  `json:"state"`
	Notes          string         `json:"notes"`
	UserID         *int           `json:"user_id,omitempty"`
	Lines          []DocumentLine `json:"lines"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Transfer moves stock between two distinct locations.
//
// State progresses through the machine:
//
//	draft → waiting → ready → done
//
// Cancel is allowed from any state except done; reset returns a waiting,
// ready, or canceled transfer to draft. Source and destination must differ.
type Transfer struct {
	ID                    int            `json:"id"`
	TransferNumber        string         `json:"transfer_number"`
	TransferDate          time.Time      `json:"transfer_date"`
	SourceLocationID      int            `json:"source_location_id"`
	SourceLocationCode    string         `json:"source_location_code"` // joined from locations
	DestinationLocationID int            `json:"destination_location_id"`
	DestLocationCode      string         `json:"destination_location_code"` // joined from locations
	State                 DocumentState  `json:"state"`
	Notes                 string         `json:"notes"`
	UserID                *int           `json:"user_id,omitempty"`
	Lines                 []DocumentLine `json:"lines"`
	CreatedAt             time.Time      `json:"created_at"`
}

// Adjustment corrects the recorded quantity of one product at one location
// to a physically counted quantity.
//
// State progresses through the machine:
//
//	draft → done
//
// Cancel is allowed only from draft.
type Adjustment struct {
	ID               int             `json:"id"`
	AdjustmentNumber string          `json:"adjustment_number"`
	AdjustmentDate   time.Time       `json:"adjustment_date"`
	ProductID        int             `json:"product_id"`
	ProductSKU       string          `json:"product_sku"` // joined from products
	LocationID       int             `json:"location_id"`
	LocationCode     string          `json:"location_code"` // joined from locations
	RecordedQty      decimal.Decimal `json:"recorded_qty"`
	CountedQty       decimal.Decimal `json:"counted_qty"`
	Difference       decimal.Decimal `json:"difference"`
	Reason           string          `json:"reason"`
	State            DocumentState   `json:"state"`
	UserID           *int            `json:"user_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// User is an authenticated actor. The core uses the ID for attribution only;
// credential checks happen in the calling layer.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // warehouse_staff | inventory_manager
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
