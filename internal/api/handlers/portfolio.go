package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/portfolio"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/logger"
)

// PortfolioHandler handles the locked selection endpoints
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	manager  *portfolio.Manager
	universe UniverseLoader
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(manager *portfolio.Manager, universe UniverseLoader, cacheTTL time.Duration, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		manager:  manager,
		universe: universe,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// GetPortfolio returns the selection and its lock state
// GET /api/portfolio
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	status, err := h.manager.Status(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Commit scans the market and locks the top candidates
// POST /api/portfolio/commit
func (h *PortfolioHandler) Commit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	universe, err := h.universe.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load universe")
		respondError(w, http.StatusInternalServerError, "Failed to load universe")
		return
	}

	sel, _, err := h.manager.ScanAndCommit(ctx, universe, selection.ScanOptions{CacheTTL: h.cacheTTL})
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, &portfolio.Status{
			Selection: sel,
			Lock:      portfolio.Evaluate(sel, time.Now()),
		})
	case errors.Is(err, contracts.ErrPortfolioLocked):
		status, _ := h.manager.Status(ctx)
		body := map[string]interface{}{"error": "portfolio is locked"}
		if status != nil {
			body["lock"] = status.Lock
		}
		respondJSON(w, http.StatusConflict, body)
	case errors.Is(err, contracts.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, contracts.ErrNoCandidates):
		respondError(w, http.StatusUnprocessableEntity, "no instrument qualified")
	default:
		h.logger.WithError(err).Error("Portfolio commit failed")
		respondError(w, http.StatusInternalServerError, "Portfolio commit failed")
	}
}

// Clear removes the selection
// DELETE /api/portfolio
func (h *PortfolioHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Clear(r.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to clear portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to clear portfolio")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoryPoint is one close of a holding
type HistoryPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// GetHistory returns the last month of closes for each holding
// GET /api/portfolio/history
func (h *PortfolioHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.manager.HoldingsHistory(r.Context())
	if err != nil {
		if errors.Is(err, contracts.ErrProviderUnavailable) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to load holdings history")
		respondError(w, http.StatusInternalServerError, "Failed to load holdings history")
		return
	}

	out := make(map[string][]HistoryPoint, len(history))
	for code, series := range history {
		points := make([]HistoryPoint, len(series.Bars))
		for i, b := range series.Bars {
			points[i] = HistoryPoint{Date: b.Date.Format(contracts.DateLayout), Close: b.Close}
		}
		out[code] = points
	}
	respondJSON(w, http.StatusOK, out)
}

// GetBacktest returns the placeholder estimate for the current holdings
// GET /api/backtest
func (h *PortfolioHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	status, err := h.manager.Status(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}

	var codes []string
	if status.Selection != nil {
		codes = status.Selection.Codes()
	}
	respondJSON(w, http.StatusOK, portfolio.EstimateBacktest(codes))
}
