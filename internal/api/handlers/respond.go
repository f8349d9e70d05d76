package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/selection"
)

// Scanner runs a market scan
type Scanner interface {
	Scan(ctx context.Context, universe *contracts.Universe, opts selection.ScanOptions) (*contracts.ScanResult, error)
}

// UniverseLoader builds the current universe
type UniverseLoader interface {
	Load(ctx context.Context) (*contracts.Universe, error)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
