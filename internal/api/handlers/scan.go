package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/logger"
)

// DefaultTop is the number of ranked rows returned by GET /api/scan
const DefaultTop = 20

// ScanHandler handles market scan endpoints
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	scanner  Scanner
	universe UniverseLoader
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanner Scanner, universe UniverseLoader, cacheTTL time.Duration, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		scanner:  scanner,
		universe: universe,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// ScanResponse is the ranked table view of a scan
type ScanResponse struct {
	Status         contracts.ScanStatus        `json:"status"`
	Reason         string                      `json:"reason,omitempty"`
	Cause          contracts.NoDataCause       `json:"cause,omitempty"`
	ScannedAt      time.Time                   `json:"scanned_at"`
	Cached         bool                        `json:"cached"`
	UniverseSize   int                         `json:"universe_size"`
	TotalQualified int                         `json:"total_qualified"`
	Candidates     []contracts.ScoredCandidate `json:"candidates"`
}

// GetScan returns the top ranked candidates
// GET /api/scan?top=20&refresh=true
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	top := DefaultTop
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = n
	}

	result, ok := h.run(w, r)
	if !ok {
		return
	}

	resp := ScanResponse{
		Status:         result.Status,
		Reason:         result.Reason,
		Cause:          result.Cause,
		ScannedAt:      result.ScannedAt,
		Cached:         result.Cached,
		UniverseSize:   result.UniverseSize,
		TotalQualified: len(result.Candidates),
		Candidates:     result.Top(top),
	}
	if resp.Candidates == nil {
		resp.Candidates = []contracts.ScoredCandidate{}
	}

	status := http.StatusOK
	if !result.HasData() {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// GetScanCSV returns the full ranked list as CSV
// GET /api/scan.csv
func (h *ScanHandler) GetScanCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	if !result.HasData() {
		respondError(w, http.StatusServiceUnavailable, "no market data: "+result.Reason)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bist_analiz.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := selection.WriteCSV(w, result.Candidates); err != nil {
		h.logger.WithError(err).Error("Failed to write scan CSV")
	}
}

// run loads the universe and scans it, writing an error response on failure
func (h *ScanHandler) run(w http.ResponseWriter, r *http.Request) (*contracts.ScanResult, bool) {
	ctx := r.Context()

	universe, err := h.universe.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load universe")
		respondError(w, http.StatusInternalServerError, "Failed to load universe")
		return nil, false
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	result, err := h.scanner.Scan(ctx, universe, selection.ScanOptions{
		CacheTTL: h.cacheTTL,
		Refresh:  refresh,
	})
	if err != nil {
		h.logger.WithError(err).Error("Market scan failed")
		respondError(w, http.StatusInternalServerError, "Market scan failed")
		return nil, false
	}
	return result, true
}
