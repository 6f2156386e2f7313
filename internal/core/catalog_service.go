package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductInput is the payload for creating or updating a product.
type ProductInput struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	UOM        string          `json:"uom"`
	MinStock   decimal.Decimal `json:"min_stock"`
	MaxStock   decimal.Decimal `json:"max_stock"`
	ReorderQty decimal.Decimal `json:"reorder_qty"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	Currency   string          `json:"currency"`
}

// CatalogService manages master data: products, warehouses, locations, and
// partners. Master data carries no workflow; the one guarded operation is
// location deactivation, which is refused while stock remains on hand.
type CatalogService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id int, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListProducts(ctx context.Context, lowStockOnly bool) ([]Product, error)

	CreateWarehouse(ctx context.Context, code, name, address string) (*Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)

	CreateLocation(ctx context.Context, warehouseID int, code, name string) (*Location, error)
	ListLocations(ctx context.Context, warehouseID int) ([]Location, error)
	DeactivateLocation(ctx context.Context, id int) error

	CreatePartner(ctx context.Context, name, kind, email, phone, address string) (*Partner, error)
	ListPartners(ctx context.Context, kind string) ([]Partner, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if input.SKU == "" {
		return nil, &ValidationError{Field: "sku", Message: "sku is required"}
	}
	if input.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	uom := input.UOM
	if uom == "" {
		uom = "Unit"
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, uom, min_stock, max_stock, reorder_qty, cost_price, sale_price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, input.SKU, input.Name, uom, input.MinStock, input.MaxStock, input.ReorderQty,
		input.CostPrice, input.SalePrice, currency).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "sku", Message: fmt.Sprintf("sku %s already exists", input.SKU)}
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int, input ProductInput) (*Product, error) {
	if input.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, uom = $2, min_stock = $3, max_stock = $4, reorder_qty = $5,
		    cost_price = $6, sale_price = $7, currency = $8
		WHERE id = $9
	`, input.Name, input.UOM, input.MinStock, input.MaxStock, input.ReorderQty,
		input.CostPrice, input.SalePrice, input.Currency, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Kind: "product", Ref: fmt.Sprint(id)}
	}
	return s.GetProduct(ctx, id)
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, productSelect+" WHERE p.id = $1 GROUP BY p.id", id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.UOM, &p.MinStock, &p.MaxStock, &p.ReorderQty,
		&p.CostPrice, &p.SalePrice, &p.Currency, &p.IsActive, &p.TotalStock, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "product", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	p.LowStock = p.MinStock.IsPositive() && p.TotalStock.LessThanOrEqual(p.MinStock)
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context, lowStockOnly bool) ([]Product, error) {
	query := productSelect + " WHERE p.is_active = true GROUP BY p.id"
	if lowStockOnly {
		query += " HAVING p.min_stock > 0 AND COALESCE(SUM(sl.quantity), 0) <= p.min_stock"
	}
	query += " ORDER BY p.sku"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.SKU, &p.Name, &p.UOM, &p.MinStock, &p.MaxStock, &p.ReorderQty,
			&p.CostPrice, &p.SalePrice, &p.Currency, &p.IsActive, &p.TotalStock, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.LowStock = p.MinStock.IsPositive() && p.TotalStock.LessThanOrEqual(p.MinStock)
		products = append(products, p)
	}
	return products, nil
}

const productSelect = `
	SELECT p.id, p.sku, p.name, p.uom, p.min_stock, p.max_stock, p.reorder_qty,
	       p.cost_price, p.sale_price, p.currency, p.is_active,
	       COALESCE(SUM(sl.quantity), 0) AS total_stock, p.created_at
	FROM products p
	LEFT JOIN stock_levels sl ON sl.product_id = p.id
`

// ── Warehouses ───────────────────────────────────────────────────────────────

func (s *catalogService) CreateWarehouse(ctx context.Context, code, name, address string) (*Warehouse, error) {
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "code is required"}
	}
	var w Warehouse
	err := s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (code, name, address)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, COALESCE(address, ''), is_active, created_at
	`, code, name, nullableText(address)).Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "code", Message: fmt.Sprintf("warehouse code %s already exists", code)}
		}
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}
	return &w, nil
}

func (s *catalogService) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, COALESCE(address, ''), is_active, created_at
		FROM warehouses
		WHERE is_active = true
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, nil
}

// ── Locations ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateLocation(ctx context.Context, warehouseID int, code, name string) (*Location, error) {
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "code is required"}
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO locations (warehouse_id, code, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, warehouseID, code, name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "code", Message: fmt.Sprintf("location code %s already exists in warehouse %d", code, warehouseID)}
		}
		if isForeignKeyViolation(err) {
			return nil, &NotFoundError{Kind: "warehouse", Ref: fmt.Sprint(warehouseID)}
		}
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return s.getLocation(ctx, id)
}

func (s *catalogService) getLocation(ctx context.Context, id int) (*Location, error) {
	var l Location
	err := s.pool.QueryRow(ctx, `
		SELECT l.id, l.warehouse_id, w.code, l.code, l.name, l.is_active, l.created_at
		FROM locations l
		JOIN warehouses w ON w.id = l.warehouse_id
		WHERE l.id = $1
	`, id).Scan(&l.ID, &l.WarehouseID, &l.WarehouseCode, &l.Code, &l.Name, &l.IsActive, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "location", Ref: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch location %d: %w", id, err)
	}
	return &l, nil
}

func (s *catalogService) ListLocations(ctx context.Context, warehouseID int) ([]Location, error) {
	query := `
		SELECT l.id, l.warehouse_id, w.code, l.code, l.name, l.is_active, l.created_at
		FROM locations l
		JOIN warehouses w ON w.id = l.warehouse_id
		WHERE l.is_active = true
	`
	var args []any
	if warehouseID != 0 {
		query += " AND l.warehouse_id = $1"
		args = append(args, warehouseID)
	}
	query += " ORDER BY w.code, l.code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.WarehouseID, &l.WarehouseCode, &l.Code, &l.Name, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, nil
}

// DeactivateLocation refuses while any stock remains at the location, so
// quantities cannot become unreachable through the catalog.
func (s *catalogService) DeactivateLocation(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var code string
	err = tx.QueryRow(ctx, "SELECT code FROM locations WHERE id = $1 FOR UPDATE", id).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Kind: "location", Ref: fmt.Sprint(id)}
		}
		return fmt.Errorf("failed to fetch location %d: %w", id, err)
	}

	var withStock int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM stock_levels WHERE location_id = $1 AND quantity > 0",
		id,
	).Scan(&withStock)
	if err != nil {
		return fmt.Errorf("failed to check stock at location %s: %w", code, err)
	}
	if withStock > 0 {
		return &ValidationError{
			Field:   "location_id",
			Message: fmt.Sprintf("location %s still holds stock for %d product(s)", code, withStock),
		}
	}

	if _, err = tx.Exec(ctx, "UPDATE locations SET is_active = false WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to deactivate location %s: %w", code, err)
	}
	return tx.Commit(ctx)
}

// ── Partners ─────────────────────────────────────────────────────────────────

func (s *catalogService) CreatePartner(ctx context.Context, name, kind, email, phone, address string) (*Partner, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	if kind != "supplier" && kind != "customer" {
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("kind must be supplier or customer, got %q", kind)}
	}
	var p Partner
	err := s.pool.QueryRow(ctx, `
		INSERT INTO partners (name, kind, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, kind, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), is_active, created_at
	`, name, kind, nullableText(email), nullableText(phone), nullableText(address)).Scan(
		&p.ID, &p.Name, &p.Kind, &p.Email, &p.Phone, &p.Address, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	return &p, nil
}

func (s *catalogService) ListPartners(ctx context.Context, kind string) ([]Partner, error) {
	query := `
		SELECT id, name, kind, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), is_active, created_at
		FROM partners
		WHERE is_active = true
	`
	var args []any
	if kind != "" {
		query += " AND kind = $1"
		args = append(args, kind)
	}
	query += " ORDER BY name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Email, &p.Phone, &p.Address, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
