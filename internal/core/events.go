package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Events receives domain notifications after the transaction that produced
// them has committed. Implementations must not fail the calling operation;
// errors stay inside the sink.
type Events interface {
	DocumentCreated(ctx context.Context, kind, reference string)
	DocumentValidated(ctx context.Context, kind, reference string, entries []LedgerEntry)
	LowStockDetected(ctx context.Context, productSKU string, totalStock, minStock decimal.Decimal)
}

// NopEvents discards every notification. Services default to it when the
// caller wires no sink.
type NopEvents struct{}

func (NopEvents) DocumentCreated(context.Context, string, string)                        {}
func (NopEvents) DocumentValidated(context.Context, string, string, []LedgerEntry)       {}
func (NopEvents) LowStockDetected(context.Context, string, decimal.Decimal, decimal.Decimal) {}
