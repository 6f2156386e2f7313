package app

import "github.com/shopspring/decimal"

// LineRequest is one document line as submitted by an adapter.
type LineRequest struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateReceiptRequest creates a draft receipt. UserID is the authenticated
// actor supplied by the adapter, not the request body.
type CreateReceiptRequest struct {
	SupplierID *int          `json:"supplier_id"`
	LocationID int           `json:"location_id"`
	Notes      string        `json:"notes"`
	Lines      []LineRequest `json:"lines"`
	UserID     *int          `json:"-"`
}

// CreateDeliveryRequest creates a draft delivery.
type CreateDeliveryRequest struct {
	CustomerID *int          `json:"customer_id"`
	LocationID int           `json:"location_id"`
	Notes      string        `json:"notes"`
	Lines      []LineRequest `json:"lines"`
	UserID     *int          `json:"-"`
}

// CreateTransferRequest creates a draft transfer between two locations.
type CreateTransferRequest struct {
	SourceLocationID      int           `json:"source_location_id"`
	DestinationLocationID int           `json:"destination_location_id"`
	Notes                 string        `json:"notes"`
	Lines                 []LineRequest `json:"lines"`
	UserID                *int          `json:"-"`
}

// CreateAdjustmentRequest creates a draft stock adjustment.
type CreateAdjustmentRequest struct {
	ProductID  int             `json:"product_id"`
	LocationID int             `json:"location_id"`
	CountedQty decimal.Decimal `json:"counted_qty"`
	Reason     string          `json:"reason"`
	UserID     *int            `json:"-"`
}

// CreateWarehouseRequest creates a warehouse.
type CreateWarehouseRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreateLocationRequest creates a location inside a warehouse.
type CreateLocationRequest struct {
	WarehouseID int    `json:"warehouse_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
}

// CreatePartnerRequest creates a supplier or customer.
type CreatePartnerRequest struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
