package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceService hands out document reference numbers such as REC-00042.
// Counters are per prefix and strictly increasing.
type SequenceService interface {
	// NextReference allocates the next number for a prefix. The increment is
	// auto-committed on the pool, outside any document transaction, so a
	// creation that later rolls back leaves a gap instead of reusing the
	// number. Numbers are unique; gaps are acceptable.
	NextReference(ctx context.Context, prefix string) (string, error)
}

type sequenceService struct {
	pool *pgxpool.Pool
}

func NewSequenceService(pool *pgxpool.Pool) SequenceService {
	return &sequenceService{pool: pool}
}

func (s *sequenceService) NextReference(ctx context.Context, prefix string) (string, error) {
	var next int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reference_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET last_number = reference_sequences.last_number + 1
		RETURNING last_number
	`, prefix).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("failed to advance sequence %s: %w", prefix, mapConflict("next reference", err))
	}
	return fmt.Sprintf("%s-%05d", prefix, next), nil
}
