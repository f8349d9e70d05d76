package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/bistpro/internal/contracts"
)

// Repository keeps a history of ranked scans in PostgreSQL
// ⭐ SSOT: 스캔 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rankingSchema = `
	CREATE SCHEMA IF NOT EXISTS selection;
	CREATE TABLE IF NOT EXISTS selection.ranking_results (
		scan_date   DATE        NOT NULL,
		rank        INT         NOT NULL,
		stock_code  TEXT        NOT NULL,
		score       INT         NOT NULL,
		price       DOUBLE PRECISION NOT NULL,
		candidate   JSONB       NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (scan_date, rank)
	);
`

// EnsureSchema creates the ranking table when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, rankingSchema); err != nil {
		return fmt.Errorf("failed to create ranking schema: %w", err)
	}
	return nil
}

// SaveRankingResults replaces the ranking stored for date
func (r *Repository) SaveRankingResults(ctx context.Context, date time.Time, ranked []contracts.ScoredCandidate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	day := date.Format(contracts.DateLayout)

	if _, err := tx.Exec(ctx, "DELETE FROM selection.ranking_results WHERE scan_date = $1", day); err != nil {
		return fmt.Errorf("failed to delete old results: %w", err)
	}

	query := `
		INSERT INTO selection.ranking_results (scan_date, rank, stock_code, score, price, candidate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for i, c := range ranked {
		batch.Queue(query, day, i+1, c.Code, c.Score, c.Price, c)
	}

	br := tx.SendBatch(ctx, batch)
	for range ranked {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert ranking result: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRankingResults returns the ranking stored for date, best first
func (r *Repository) GetRankingResults(ctx context.Context, date time.Time, limit int) ([]contracts.ScoredCandidate, error) {
	query := `
		SELECT candidate
		FROM selection.ranking_results
		WHERE scan_date = $1
		ORDER BY rank ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, date.Format(contracts.DateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking results: %w", err)
	}
	defer rows.Close()

	results := make([]contracts.ScoredCandidate, 0)
	for rows.Next() {
		var c contracts.ScoredCandidate
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// LatestScanDate returns the most recent stored scan date
func (r *Repository) LatestScanDate(ctx context.Context) (time.Time, bool, error) {
	var d *time.Time
	if err := r.pool.QueryRow(ctx, "SELECT MAX(scan_date) FROM selection.ranking_results").Scan(&d); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest scan date: %w", err)
	}
	if d == nil {
		return time.Time{}, false, nil
	}
	return *d, true, nil
}
