package contracts

import (
	"fmt"
	"sort"
	"time"
)

// Universe is the de-duplicated, ordered instrument list fed to the scanner
// ⭐ SSOT: S1 → Scanner 전달
type Universe struct {
	Date     time.Time         `json:"date"`
	Stocks   []string          `json:"stocks"`   // scan order
	Sectors  map[string]string `json:"sectors"`  // optional code → sector
	Excluded map[string]string `json:"excluded"` // code → reason (e.g. duplicate)
	Source   string            `json:"source"`
}

// Validate rejects blank or repeated codes
func (u *Universe) Validate() error {
	seen := make(map[string]struct{}, len(u.Stocks))
	for i, code := range u.Stocks {
		if code == "" {
			return fmt.Errorf("%w: blank code at position %d", ErrInvalidInput, i)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidInput, code)
		}
		seen[code] = struct{}{}
	}
	return nil
}

// SectorOf returns the configured sector or DefaultSector
func (u *Universe) SectorOf(code string) string {
	if s, ok := u.Sectors[code]; ok && s != "" {
		return s
	}
	return DefaultSector
}

// ExcludedCodes returns the dropped codes, sorted
func (u *Universe) ExcludedCodes() []string {
	codes := make([]string, 0, len(u.Excluded))
	for code := range u.Excluded {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Count returns the number of investable stocks
func (u *Universe) Count() int {
	return len(u.Stocks)
}
