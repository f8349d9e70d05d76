package s1_universe

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
)

// Exclusion reasons recorded in Universe.Excluded
const (
	ReasonDuplicate = "duplicate"
	ReasonExcluded  = "excluded"
)

// Builder constructs the investable universe
type Builder struct {
	config Config
}

// Config holds universe filter criteria
type Config struct {
	Suffix         string   // appended to bare codes
	Exclude        []string // 제외 종목
	ExcludeSectors []string // 제외 섹터
}

// ConfigFrom takes the filter settings of a reference file
func ConfigFrom(ref *Reference) Config {
	return Config{
		Suffix:         ref.Suffix,
		Exclude:        ref.Exclude,
		ExcludeSectors: ref.ExcludeSectors,
	}
}

// NewBuilder creates a new Universe Builder
func NewBuilder(config Config) *Builder {
	return &Builder{config: config}
}

// Build turns raw entries into an ordered, de-duplicated universe
// ⭐ SSOT: S1 → Scanner 유니버스 생성
//
// The first occurrence of a code keeps its position; later repeats are
// recorded as duplicates.
func (b *Builder) Build(date time.Time, source string, entries []Entry) *contracts.Universe {
	universe := &contracts.Universe{
		Date:     date,
		Stocks:   make([]string, 0, len(entries)),
		Sectors:  make(map[string]string),
		Excluded: make(map[string]string),
		Source:   source,
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		code := b.Normalize(e.Code)
		if code == "" {
			continue
		}
		if seen[code] {
			universe.Excluded[code] = ReasonDuplicate
			continue
		}
		seen[code] = true

		if reason := b.checkExclusion(code, e.Sector); reason != "" {
			universe.Excluded[code] = reason
			continue
		}

		universe.Stocks = append(universe.Stocks, code)
		if e.Sector != "" {
			universe.Sectors[code] = e.Sector
		}
	}

	return universe
}

// Normalize upper-cases a code and appends the exchange suffix when missing
func (b *Builder) Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if b.config.Suffix != "" && !strings.Contains(code, ".") {
		code += b.config.Suffix
	}
	return code
}

// checkExclusion checks if a stock should be excluded and returns the reason
func (b *Builder) checkExclusion(code, sector string) string {
	for _, ex := range b.config.Exclude {
		if b.Normalize(ex) == code {
			return ReasonExcluded
		}
	}

	if sector != "" && slices.Contains(b.config.ExcludeSectors, sector) {
		return fmt.Sprintf("excluded sector (%s)", sector)
	}

	return "" // 통과
}
