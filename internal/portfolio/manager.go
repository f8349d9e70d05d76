package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/internal/selection"
	"github.com/wonny/bistpro/pkg/logger"
)

// MarketScanner is the part of selection.Scanner the manager needs
type MarketScanner interface {
	Scan(ctx context.Context, universe *contracts.Universe, opts selection.ScanOptions) (*contracts.ScanResult, error)
}

// Status is the current selection with its derived lock state
type Status struct {
	Selection *contracts.PortfolioSelection `json:"selection,omitempty"`
	Lock      contracts.LockState           `json:"lock"`
	Malformed bool                          `json:"malformed,omitempty"`
}

// Manager enforces the holding period on behalf of callers
// ⭐ SSOT: 포트폴리오 커밋은 여기서만 (잠금 중 커밋 거부)
type Manager struct {
	store       contracts.SelectionStore
	scanner     MarketScanner
	prices      contracts.PriceProvider
	constraints Constraints
	logger      *logger.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewManager creates a new manager. scanner and prices may be nil when only
// Status/Commit/Clear are used.
func NewManager(
	store contracts.SelectionStore,
	scanner MarketScanner,
	prices contracts.PriceProvider,
	constraints Constraints,
	logger *logger.Logger,
) *Manager {
	if constraints.MaxPositions <= 0 {
		constraints.MaxPositions = DefaultConstraints().MaxPositions
	}
	return &Manager{
		store:       store,
		scanner:     scanner,
		prices:      prices,
		constraints: constraints,
		logger:      logger,
		now:         time.Now,
	}
}

// Status loads the selection and evaluates its lock.
// Malformed stored state is logged and reported as absent.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	sel, malformed, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Selection: sel,
		Lock:      Evaluate(sel, m.now()),
		Malformed: malformed,
	}, nil
}

func (m *Manager) load(ctx context.Context) (*contracts.PortfolioSelection, bool, error) {
	sel, err := m.store.Load(ctx)
	if errors.Is(err, contracts.ErrMalformedState) {
		m.logger.WithError(err).Warn("Stored portfolio selection is malformed, treating as absent")
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load selection: %w", err)
	}
	return sel, false, nil
}

// Commit stores the leading candidates as a new selection dated today.
// Rejected with ErrPortfolioLocked while the current selection is locked.
func (m *Manager) Commit(ctx context.Context, ranked []contracts.ScoredCandidate) (*contracts.PortfolioSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return m.commitLocked(ctx, ranked)
}

// ScanAndCommit scans universe and commits the top candidates in one step.
// The lock is checked before scanning so a locked portfolio costs no fetches.
func (m *Manager) ScanAndCommit(ctx context.Context, universe *contracts.Universe, opts selection.ScanOptions) (*contracts.PortfolioSelection, *contracts.ScanResult, error) {
	if m.scanner == nil {
		return nil, nil, fmt.Errorf("%w: no scanner configured", contracts.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureOpen(ctx); err != nil {
		return nil, nil, err
	}

	result, err := m.scanner.Scan(ctx, universe, opts)
	if err != nil {
		return nil, nil, err
	}
	if !result.HasData() {
		return nil, result, fmt.Errorf("%w: %s", contracts.ErrProviderUnavailable, result.Reason)
	}

	sel, err := m.commitLocked(ctx, result.Candidates)
	if err != nil {
		return nil, result, err
	}
	return sel, result, nil
}

func (m *Manager) ensureOpen(ctx context.Context) error {
	current, _, err := m.load(ctx)
	if err != nil {
		return err
	}
	if lock := Evaluate(current, m.now()); lock.Locked {
		return fmt.Errorf("%w: %d days remaining", contracts.ErrPortfolioLocked, lock.DaysRemaining)
	}
	return nil
}

func (m *Manager) commitLocked(ctx context.Context, ranked []contracts.ScoredCandidate) (*contracts.PortfolioSelection, error) {
	sel, err := Construct(ranked, m.constraints, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, sel); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"start_date": sel.StartDate.Format(contracts.DateLayout),
		"holdings":   sel.Codes(),
	}).Info("Portfolio selection committed")
	return sel, nil
}

// Clear removes the stored selection regardless of lock state
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	m.logger.Info("Portfolio selection cleared")
	return nil
}

// HoldingsHistory returns the last month of prices for the current holdings.
// An empty map is returned when nothing is held.
func (m *Manager) HoldingsHistory(ctx context.Context) (map[string]contracts.PriceSeries, error) {
	if m.prices == nil {
		return nil, fmt.Errorf("%w: no price provider configured", contracts.ErrInvalidInput)
	}

	sel, _, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if sel == nil || sel.Count() == 0 {
		return map[string]contracts.PriceSeries{}, nil
	}

	return m.prices.FetchSeries(ctx, sel.Codes(), contracts.LookbackMonth)
}
