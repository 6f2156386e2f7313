// migrate applies migrations/schema.sql to the database named by
// DATABASE_URL. The schema uses IF NOT EXISTS throughout, so re-running is
// safe. An advisory lock keeps concurrent migrators out.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"log"
	"os"

	"stockmaster/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatalf("Failed to acquire connection: %v", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(4177365)").Scan(&locked); err != nil {
		log.Fatalf("Failed to query advisory lock: %v", err)
	}
	if !locked {
		log.Fatal("Another migrator is currently running")
	}

	schema, err := os.ReadFile("migrations/schema.sql")
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}

	if _, err := conn.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration successful.")
}
