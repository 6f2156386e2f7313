package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "stockmaster/internal/adapters/web"
	"stockmaster/internal/app"
	"stockmaster/internal/core"
	"stockmaster/internal/db"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// logEvents forwards domain events to structured logs. Wired as the event
// sink for every document service.
type logEvents struct {
	log *logrus.Logger
}

func (e *logEvents) DocumentCreated(_ context.Context, kind, reference string) {
	e.log.WithFields(logrus.Fields{"kind": kind, "reference": reference}).Info("document created")
}

func (e *logEvents) DocumentValidated(_ context.Context, kind, reference string, entries []core.LedgerEntry) {
	e.log.WithFields(logrus.Fields{
		"kind":      kind,
		"reference": reference,
		"entries":   len(entries),
	}).Info("document validated")
}

func (e *logEvents) LowStockDetected(_ context.Context, productSKU string, totalStock, minStock decimal.Decimal) {
	e.log.WithFields(logrus.Fields{
		"sku":       productSKU,
		"total":     totalStock.String(),
		"min_stock": minStock.String(),
	}).Warn("low stock")
}

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	events := &logEvents{log: log}
	sequences := core.NewSequenceService(pool)

	svc := app.NewApplicationService(app.Services{
		Receipts:    core.NewReceiptService(pool, sequences, events),
		Deliveries:  core.NewDeliveryService(pool, sequences, events),
		Transfers:   core.NewTransferService(pool, sequences, events),
		Adjustments: core.NewAdjustmentService(pool, sequences, events),
		Stock:       core.NewStockService(pool),
		Catalog:     core.NewCatalogService(pool),
		Reporting:   core.NewReportingService(pool),
		Users:       core.NewUserService(pool),
	})

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret, log)

	log.Infof("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
