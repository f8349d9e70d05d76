package contracts

import "time"

// DateLayout is the calendar date format of persisted selections
const DateLayout = "2006-01-02"

// PortfolioSelection is a committed top-N set.
// Immutable once created; a new commit replaces it wholesale.
type PortfolioSelection struct {
	StartDate time.Time         `json:"start_date"`
	Holdings  []ScoredCandidate `json:"holdings"`
}

// Codes returns the instrument codes of the holdings in order
func (p *PortfolioSelection) Codes() []string {
	codes := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		codes[i] = h.Code
	}
	return codes
}

// Count returns the number of holdings
func (p *PortfolioSelection) Count() int {
	return len(p.Holdings)
}

// LockState is derived from the selection start date and "now"; never stored
type LockState struct {
	Locked        bool `json:"locked"`
	DaysRemaining int  `json:"days_remaining"`
}
