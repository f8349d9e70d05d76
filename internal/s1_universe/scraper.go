package s1_universe

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/bistpro/pkg/httputil"
	"github.com/wonny/bistpro/pkg/logger"
)

// tickerPattern matches a bare Borsa Istanbul code (THYAO, A1CAP) as the
// page writes it. Codes are published in upper case.
var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{2,5}$`)

// Scraper reads index constituents from an HTML page.
// The page must hold a table whose first cell per row is the ticker; an
// optional cell with class "sector" supplies the sector.
type Scraper struct {
	client *httputil.Client
	url    string
	logger *logger.Logger
}

// NewScraper creates a new constituent scraper
func NewScraper(client *httputil.Client, url string, log *logger.Logger) *Scraper {
	return &Scraper{
		client: client,
		url:    url,
		logger: log,
	}
}

// Fetch downloads and parses the constituent page
func (s *Scraper) Fetch(ctx context.Context) ([]Entry, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: s.url}
	}

	entries, err := ParseConstituents(resp.Body)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"url":   s.url,
		"count": len(entries),
	}).Debug("Fetched index constituents")
	return entries, nil
}

// ParseConstituents extracts ticker rows from an HTML document
func ParseConstituents(r io.Reader) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse constituents: %w", err)
	}

	entries := make([]Entry, 0)
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header
		}

		// 대소문자 섞인 합계 행(Total, Sum)은 티커가 아님
		code := strings.TrimSpace(cells.Eq(0).Text())
		if !tickerPattern.MatchString(code) {
			return
		}

		entries = append(entries, Entry{
			Code:   code,
			Sector: strings.TrimSpace(row.Find("td.sector").First().Text()),
		})
	})

	return entries, nil
}
