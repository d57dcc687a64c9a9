// Package importer writes scored records into the lookup_cache table the
// public lookup API reads from. The whole run is one transaction: either
// every record lands or none does.
package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// DefaultChunkSize is the number of upserts flushed per batch round-trip.
const DefaultChunkSize = 500

const upsertQuery = `
INSERT INTO lookup_cache
    (value, type_id, report_count, risk_level_id, risk_score, confidence, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (value, type_id) DO UPDATE SET
    report_count  = lookup_cache.report_count + EXCLUDED.report_count,
    risk_level_id = EXCLUDED.risk_level_id,
    risk_score    = EXCLUDED.risk_score,
    confidence    = EXCLUDED.confidence,
    updated_at    = EXCLUDED.updated_at`

// DB is the transaction surface needed from a pgx pool or connection.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Importer upserts scored records into lookup_cache.
type Importer struct {
	db        DB
	chunkSize int
	logger    *zap.Logger
}

// New creates an importer. A non-positive chunkSize falls back to
// DefaultChunkSize.
func New(db DB, chunkSize int, logger *zap.Logger) *Importer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{db: db, chunkSize: chunkSize, logger: logger}
}

// Import upserts every record in one transaction, flushing in chunks.
// Any failure rolls back the whole run and is returned to the caller.
func (im *Importer) Import(ctx context.Context, records []*entity.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := im.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(records); start += im.chunkSize {
		end := start + im.chunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := im.flushChunk(ctx, tx, records[start:end]); err != nil {
			return fmt.Errorf("import chunk at %d: %w", start, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}

	im.logger.Info("records imported", zap.Int("count", len(records)))
	return nil
}

func (im *Importer) flushChunk(ctx context.Context, tx pgx.Tx, chunk []*entity.Record) error {
	batch := &pgx.Batch{}
	for _, r := range chunk {
		batch.Queue(upsertQuery, upsertArgs(r)...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range chunk {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert lookup_cache: %w", err)
		}
	}
	return results.Close()
}

// upsertArgs builds the positional arguments for one lookup_cache upsert.
// The additive report_count column counts sightings, so each import
// contributes exactly one regardless of the report stats attached for
// scoring; the conflict clause accumulates it across runs.
func upsertArgs(r *entity.Record) []any {
	return []any{
		r.Value,
		r.Type.ID(),
		1,
		r.RiskLevel.ID(),
		r.RiskScore,
		r.Confidence,
		r.CreatedAt,
	}
}
