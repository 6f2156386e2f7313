// verify-stock reconciles the stock index against the ledger: for every
// (product, location) pair the stock_levels quantity must equal the sum of
// quantity_in minus quantity_out over its ledger entries, and no quantity may
// be negative. Exits 1 when any pair drifts, so it can gate deploys and cron
// checks.
//
// Usage: go run ./cmd/verify-stock
package main

import (
	"context"
	"fmt"
	"os"

	"stockmaster/internal/db"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		fmt.Printf("Failed to connect to DB: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT p.sku, l.code, sl.quantity,
		       COALESCE(SUM(le.quantity_in - le.quantity_out), 0) AS ledger_total
		FROM stock_levels sl
		JOIN products p ON p.id = sl.product_id
		JOIN locations l ON l.id = sl.location_id
		LEFT JOIN stock_ledger le
		       ON le.product_id = sl.product_id AND le.location_id = sl.location_id
		GROUP BY p.sku, l.code, sl.quantity
		ORDER BY p.sku, l.code
	`)
	if err != nil {
		fmt.Printf("Failed to query stock levels: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	var checked, drifted int
	for rows.Next() {
		var sku, code string
		var quantity, ledgerTotal decimal.Decimal
		if err := rows.Scan(&sku, &code, &quantity, &ledgerTotal); err != nil {
			fmt.Printf("Failed to scan row: %v\n", err)
			os.Exit(1)
		}
		checked++

		if quantity.IsNegative() {
			fmt.Printf("DRIFT %s @ %s: negative quantity %s\n", sku, code, quantity.String())
			drifted++
			continue
		}
		if !quantity.Equal(ledgerTotal) {
			fmt.Printf("DRIFT %s @ %s: index %s, ledger sum %s\n",
				sku, code, quantity.String(), ledgerTotal.String())
			drifted++
		}
	}
	if err := rows.Err(); err != nil {
		fmt.Printf("Error iterating rows: %v\n", err)
		os.Exit(1)
	}

	if drifted > 0 {
		fmt.Printf("FAIL: %d of %d stock rows out of sync with the ledger\n", drifted, checked)
		os.Exit(1)
	}
	fmt.Printf("OK: %d stock rows match the ledger\n", checked)
}
