package portfolio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/internal/contracts"
)

func sampleSelection() *contracts.PortfolioSelection {
	return &contracts.PortfolioSelection{
		StartDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Holdings: []contracts.ScoredCandidate{
			{
				Code:             "THYAO.IS",
				Price:            131,
				Score:            100,
				RSI:              68.35,
				MACD:             3.47,
				MACDSignal:       3.41,
				SMA50:            118,
				ATR:              2.5,
				EarningsMultiple: contracts.KnownRatio(4.1),
				BookMultiple:     contracts.KnownRatio(1.2),
				Sector:           "Airlines",
				StopLoss:         124.75,
				TakeProfit1:      138.5,
				TakeProfit2:      146,
				Narrative:        "RSI is in neutral territory.",
			},
			{
				Code:             "ASELS.IS",
				Price:            58.4,
				Score:            60,
				EarningsMultiple: contracts.UnknownRatio(),
				BookMultiple:     contracts.UnknownRatio(),
				Sector:           contracts.DefaultSector,
			},
		},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "portfoy.json"))

	in := sampleSelection()
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.StartDate.Equal(out.StartDate))
	assert.Equal(t, in.Holdings, out.Holdings)
}

func TestFileStore_Layout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portfoy.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, sampleSelection()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"start_date": "2024-06-03"`)
	assert.Contains(t, string(raw), `"stocks"`)
	assert.Contains(t, string(raw), `"earnings_multiple": 999`)
}

func TestFileStore_Missing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	sel, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, sel)
}

func TestFileStore_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{oops"},
		{name: "bad date", content: `{"start_date":"03/06/2024","stocks":[]}`},
		{name: "missing date", content: `{"stocks":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "portfoy.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			sel, err := NewFileStore(path).Load(context.Background())
			assert.Nil(t, sel)
			assert.True(t, errors.Is(err, contracts.ErrMalformedState))
		})
	}
}

func TestFileStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "portfoy.json"))

	require.NoError(t, store.Save(ctx, sampleSelection()))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	sel, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, sel)
}

func TestFileStore_SaveNil(t *testing.T) {
	err := NewFileStore(filepath.Join(t.TempDir(), "p.json")).Save(context.Background(), nil)
	assert.True(t, errors.Is(err, contracts.ErrInvalidInput))
}
