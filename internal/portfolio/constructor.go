package portfolio

import (
	"fmt"
	"slices"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
)

// Constraints defines selection constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	MaxPositions int      // 보유 종목 수 (기본 5)
	BlackList    []string // 제외 종목 리스트
}

// IsBlackListed checks if a stock code is in the blacklist
func (c *Constraints) IsBlackListed(code string) bool {
	return slices.Contains(c.BlackList, code)
}

// DefaultConstraints returns the default top-5 selection
func DefaultConstraints() Constraints {
	return Constraints{
		MaxPositions: 5,
		BlackList:    []string{},
	}
}

// Construct picks the leading ranked candidates into a new selection dated
// at the calendar date of now. ranked must already be in rank order.
func Construct(ranked []contracts.ScoredCandidate, constraints Constraints, now time.Time) (*contracts.PortfolioSelection, error) {
	if constraints.MaxPositions <= 0 {
		return nil, fmt.Errorf("%w: max positions must be positive", contracts.ErrInvalidInput)
	}

	holdings := make([]contracts.ScoredCandidate, 0, constraints.MaxPositions)
	seen := make(map[string]bool, constraints.MaxPositions)
	for _, c := range ranked {
		if len(holdings) == constraints.MaxPositions {
			break
		}
		if seen[c.Code] || constraints.IsBlackListed(c.Code) {
			continue
		}
		seen[c.Code] = true
		holdings = append(holdings, c)
	}

	if len(holdings) == 0 {
		return nil, contracts.ErrNoCandidates
	}

	return &contracts.PortfolioSelection{
		StartDate: CalendarDate(now),
		Holdings:  holdings,
	}, nil
}
