package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/bistpro/internal/contracts"
)

// PostgresStore keeps the committed selection in a single-row table
// ⭐ SSOT: Portfolio 데이터 저장/조회는 여기서만 (file store와 동일 계약)
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new selection store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the selection table if missing
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS portfolio;
		CREATE TABLE IF NOT EXISTS portfolio.selections (
			id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			start_date DATE NOT NULL,
			holdings   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create selection schema: %w", err)
	}
	return nil
}

// Load returns the stored selection, or (nil, nil) when none is stored
func (r *PostgresStore) Load(ctx context.Context) (*contracts.PortfolioSelection, error) {
	var (
		start    time.Time
		holdings []byte
	)
	err := r.pool.QueryRow(ctx,
		"SELECT start_date, holdings FROM portfolio.selections WHERE id = 1",
	).Scan(&start, &holdings)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}

	var stocks []contracts.ScoredCandidate
	if err := json.Unmarshal(holdings, &stocks); err != nil {
		return nil, fmt.Errorf("%w: holdings: %v", contracts.ErrMalformedState, err)
	}

	return &contracts.PortfolioSelection{
		StartDate: CalendarDate(start),
		Holdings:  stocks,
	}, nil
}

// Save replaces the stored selection
func (r *PostgresStore) Save(ctx context.Context, sel *contracts.PortfolioSelection) error {
	if sel == nil {
		return fmt.Errorf("%w: nil selection", contracts.ErrInvalidInput)
	}

	holdings, err := json.Marshal(sel.Holdings)
	if err != nil {
		return fmt.Errorf("failed to encode holdings: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO portfolio.selections (id, start_date, holdings, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			holdings = EXCLUDED.holdings,
			updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, query, CalendarDate(sel.StartDate), holdings); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear deletes the stored selection
func (r *PostgresStore) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM portfolio.selections WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}
