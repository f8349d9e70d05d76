package s1_universe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/logger"
)

// Loader builds the universe from the reference file, optionally refreshed
// from a live constituent page
type Loader struct {
	file    string
	scraper *Scraper
	logger  *logger.Logger
	now     func() time.Time
}

// NewLoader creates a loader. scraper may be nil.
func NewLoader(file string, scraper *Scraper, log *logger.Logger) *Loader {
	return &Loader{
		file:    file,
		scraper: scraper,
		logger:  log,
		now:     time.Now,
	}
}

// Load returns the universe for today.
// A failed or empty scrape falls back to the reference list.
func (l *Loader) Load(ctx context.Context) (*contracts.Universe, error) {
	ref, raw, err := LoadFile(l.file)
	if err != nil {
		return nil, fmt.Errorf("load universe reference: %w", err)
	}

	builder := NewBuilder(ConfigFrom(ref))
	entries := ref.Stocks
	source := fmt.Sprintf("file:%s@%s", filepath.Base(l.file), Hash(raw))

	if l.scraper != nil {
		scraped, err := l.scraper.Fetch(ctx)
		switch {
		case err != nil:
			l.logger.WithError(err).Warn("Constituent scrape failed, using reference list")
		case len(scraped) == 0:
			l.logger.Warn("Constituent scrape returned no tickers, using reference list")
		default:
			entries = withReferenceSectors(scraped, ref.Stocks)
			source = "scrape:" + l.scraper.url
		}
	}

	universe := builder.Build(l.now(), source, entries)
	l.logger.WithFields(map[string]interface{}{
		"name":     ref.Name,
		"source":   universe.Source,
		"stocks":   universe.Count(),
		"excluded": universe.ExcludedCodes(),
	}).Info("Universe built")

	if universe.Count() == 0 {
		return nil, fmt.Errorf("%w: universe %q is empty", contracts.ErrInvalidInput, ref.Name)
	}
	if err := universe.Validate(); err != nil {
		return nil, err
	}
	return universe, nil
}

// withReferenceSectors fills sectors the page lacks from the reference list
func withReferenceSectors(scraped, reference []Entry) []Entry {
	sectors := make(map[string]string, len(reference))
	for _, e := range reference {
		if e.Sector != "" {
			sectors[baseCode(e.Code)] = e.Sector
		}
	}

	out := make([]Entry, len(scraped))
	for i, e := range scraped {
		if e.Sector == "" {
			e.Sector = sectors[baseCode(e.Code)]
		}
		out[i] = e
	}
	return out
}

func baseCode(code string) string {
	base, _, _ := strings.Cut(strings.ToUpper(code), ".")
	return base
}
