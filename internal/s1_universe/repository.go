package s1_universe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/bistpro/internal/contracts"
)

// Repository handles data persistence for S1
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the snapshot table if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS universe;
		CREATE TABLE IF NOT EXISTS universe.snapshots (
			snapshot_date   DATE PRIMARY KEY,
			eligible_stocks TEXT[] NOT NULL,
			total_count     INT NOT NULL,
			sectors         JSONB NOT NULL DEFAULT '{}',
			excluded        JSONB NOT NULL DEFAULT '{}',
			source          TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create universe schema: %w", err)
	}
	return nil
}

// SaveUniverse saves a universe snapshot to the database
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}
	sectorsJSON, err := json.Marshal(universe.Sectors)
	if err != nil {
		return fmt.Errorf("marshal sectors: %w", err)
	}

	query := `
		INSERT INTO universe.snapshots (
			snapshot_date,
			eligible_stocks,
			total_count,
			sectors,
			excluded,
			source,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			eligible_stocks = EXCLUDED.eligible_stocks,
			total_count = EXCLUDED.total_count,
			sectors = EXCLUDED.sectors,
			excluded = EXCLUDED.excluded,
			source = EXCLUDED.source,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		universe.Date,
		universe.Stocks,
		universe.Count(),
		sectorsJSON,
		excludedJSON,
		universe.Source,
	)
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

// GetLatestUniverse retrieves the most recent universe snapshot
func (r *Repository) GetLatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	query := `
		SELECT
			snapshot_date,
			eligible_stocks,
			sectors,
			excluded,
			source
		FROM universe.snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	universe := &contracts.Universe{
		Sectors:  make(map[string]string),
		Excluded: make(map[string]string),
	}

	var sectorsJSON, excludedJSON []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&universe.Date,
		&universe.Stocks,
		&sectorsJSON,
		&excludedJSON,
		&universe.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest universe: %w", err)
	}

	if err := json.Unmarshal(sectorsJSON, &universe.Sectors); err != nil {
		return nil, fmt.Errorf("unmarshal sectors: %w", err)
	}
	if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
		return nil, fmt.Errorf("unmarshal excluded: %w", err)
	}

	return universe, nil
}
