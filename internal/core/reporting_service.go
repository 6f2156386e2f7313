package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// recentDocumentLimit bounds the dashboard's recent-activity list.
const recentDocumentLimit = 10

// Dashboard aggregates the operational KPIs shown on the landing view.
type Dashboard struct {
	ActiveProducts    int              `json:"active_products"`
	LowStockProducts  int              `json:"low_stock_products"`
	OutOfStock        int              `json:"out_of_stock"`
	PendingReceipts   int              `json:"pending_receipts"`
	PendingDeliveries int              `json:"pending_deliveries"`
	PendingTransfers  int              `json:"pending_transfers"`
	RecentDocuments   []RecentDocument `json:"recent_documents"`
}

// RecentDocument is one row in the dashboard's recent-activity list.
type RecentDocument struct {
	Kind      string        `json:"kind"`
	Reference string        `json:"reference"`
	State     DocumentState `json:"state"`
	CreatedAt string        `json:"created_at"`
}

// ReportingService provides read-only KPI queries over stock and documents.
type ReportingService interface {
	GetDashboard(ctx context.Context) (*Dashboard, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE is_active AND min_stock > 0 AND total <= min_stock),
			COUNT(*) FILTER (WHERE is_active AND total = 0)
		FROM (
			SELECT p.id, p.is_active, p.min_stock, COALESCE(SUM(sl.quantity), 0) AS total
			FROM products p
			LEFT JOIN stock_levels sl ON sl.product_id = p.id
			GROUP BY p.id
		) t
	`).Scan(&d.ActiveProducts, &d.LowStockProducts, &d.OutOfStock)
	if err != nil {
		return nil, fmt.Errorf("failed to compute product KPIs: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM receipts   WHERE state NOT IN ('done', 'canceled')),
			(SELECT COUNT(*) FROM deliveries WHERE state NOT IN ('done', 'canceled')),
			(SELECT COUNT(*) FROM transfers  WHERE state NOT IN ('done', 'canceled'))
	`).Scan(&d.PendingReceipts, &d.PendingDeliveries, &d.PendingTransfers)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pending document KPIs: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT kind, reference, state, created_at::text FROM (
			SELECT 'receipt'  AS kind, receipt_number  AS reference, state, created_at FROM receipts
			UNION ALL
			SELECT 'delivery',          delivery_number,              state, created_at FROM deliveries
			UNION ALL
			SELECT 'transfer',          transfer_number,              state, created_at FROM transfers
			UNION ALL
			SELECT 'adjustment',        adjustment_number,            state, created_at FROM adjustments
		) docs
		ORDER BY created_at DESC
		LIMIT $1
	`, recentDocumentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r RecentDocument
		if err := rows.Scan(&r.Kind, &r.Reference, &r.State, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent document: %w", err)
		}
		d.RecentDocuments = append(d.RecentDocuments, r)
	}
	return &d, nil
}
