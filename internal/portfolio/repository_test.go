package portfolio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/config"
	"github.com/wonny/bistpro/pkg/database"
)

func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := database.New(ctx, config.DatabaseConfig{URL: url})
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db.Pool)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Clear(ctx))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	sel := &contracts.PortfolioSelection{
		StartDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Holdings: []contracts.ScoredCandidate{
			{Code: "THYAO.IS", Price: 131, Score: 100, EarningsMultiple: contracts.KnownRatio(4), BookMultiple: contracts.UnknownRatio()},
		},
	}
	require.NoError(t, store.Save(ctx, sel))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-06-03", got.StartDate.Format(contracts.DateLayout))
	assert.Equal(t, []string{"THYAO.IS"}, got.Codes())
	assert.False(t, got.Holdings[0].BookMultiple.Known())

	require.NoError(t, store.Clear(ctx))
}
