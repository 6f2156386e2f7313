// seed-demo loads a small demo dataset: two users, one warehouse with three
// locations, a handful of products, and a supplier/customer pair. Safe to
// re-run; every insert upserts on its natural key.
//
// Usage: go run ./cmd/seed-demo
package main

import (
	"context"
	"log"

	"stockmaster/internal/db"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding users...")
	managerHash, err := bcrypt.GenerateFromPassword([]byte("manager123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	staffHash, err := bcrypt.GenerateFromPassword([]byte("staff1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES
			('manager', 'manager@example.com', $1, 'inventory_manager'),
			('staff',   'staff@example.com',   $2, 'warehouse_staff')
		ON CONFLICT (username) DO UPDATE
		  SET password_hash = EXCLUDED.password_hash,
		      role = EXCLUDED.role;
	`, string(managerHash), string(staffHash))
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("Seeding warehouse and locations...")
	_, err = tx.Exec(ctx, `
		INSERT INTO warehouses (code, name, address)
		VALUES ('WH1', 'Main Warehouse', '1 Depot Road')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;

		INSERT INTO locations (warehouse_id, code, name)
		SELECT w.id, l.code, l.name
		FROM warehouses w
		CROSS JOIN (VALUES
			('RECV',  'Receiving Dock'),
			('STOCK', 'Main Stock'),
			('SHIP',  'Shipping Dock')
		) AS l(code, name)
		WHERE w.code = 'WH1'
		ON CONFLICT (warehouse_id, code) DO UPDATE SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to seed warehouse: %v", err)
	}

	log.Println("Seeding products...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (sku, name, uom, min_stock, reorder_qty, cost_price, sale_price)
		VALUES
			('WID-001', 'Widget, small',  'Unit', 20, 100, 1.50,  3.00),
			('WID-002', 'Widget, large',  'Unit', 10,  50, 2.75,  5.50),
			('BOX-010', 'Shipping box',   'Unit', 50, 200, 0.40,  0.90),
			('CBL-120', 'Cable, 1.2m',    'Unit',  0,   0, 0.80,  2.20)
		ON CONFLICT (sku) DO UPDATE
		  SET name = EXCLUDED.name,
		      min_stock = EXCLUDED.min_stock,
		      reorder_qty = EXCLUDED.reorder_qty;
	`)
	if err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	log.Println("Seeding partners...")
	_, err = tx.Exec(ctx, `
		INSERT INTO partners (name, kind, email)
		SELECT v.name, v.kind, v.email
		FROM (VALUES
			('Acme Supplies Ltd', 'supplier', 'orders@acme.example'),
			('Northwind Retail',  'customer', 'purchasing@northwind.example')
		) AS v(name, kind, email)
		WHERE NOT EXISTS (
			SELECT 1 FROM partners p WHERE p.name = v.name AND p.kind = v.kind
		);
	`)
	if err != nil {
		log.Fatalf("Failed to seed partners: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit seed: %v", err)
	}
	log.Println("Demo data seeded.")
}
