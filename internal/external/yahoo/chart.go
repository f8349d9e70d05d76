package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/httputil"
)

// exchangeZone is Borsa Istanbul local time (no DST since 2016)
var exchangeZone = time.FixedZone("TRT", 3*60*60)

// chartResponse is the v8 chart payload. Missing values arrive as null.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open  []*float64 `json:"open"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
	Close []*float64 `json:"close"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *chartError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// FetchSeries fetches daily bars for every code.
// ⭐ SSOT: contracts.PriceProvider 구현
//
// Codes that fail or return no bars are left out of the map. The call fails
// with ErrProviderUnavailable only when every code failed.
func (c *Client) FetchSeries(ctx context.Context, codes []string, lookback contracts.Lookback) (map[string]contracts.PriceSeries, error) {
	result := make(map[string]contracts.PriceSeries, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			series, err := c.FetchChart(gctx, code, lookback)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				c.logger.WithFields(map[string]interface{}{
					"code": code,
				}).WithError(err).Debug("Chart fetch failed")
				return nil
			}
			if series.Len() > 0 {
				result[code] = series
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(codes),
		"returned":  len(result),
		"failed":    failures,
		"lookback":  string(lookback),
	}).Info("Fetched price series")

	if failures == len(codes) {
		return nil, fmt.Errorf("%w: all %d chart requests failed: %v", contracts.ErrProviderUnavailable, failures, lastErr)
	}
	return result, nil
}

// FetchChart fetches one instrument's daily history
func (c *Client) FetchChart(ctx context.Context, code string, lookback contracts.Lookback) (contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("range", string(lookback))
	params.Set("interval", "1d")
	fullURL := fmt.Sprintf("%s/%s?%s", c.chartURL, url.PathEscape(code), params.Encode())

	var payload chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &payload); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) || httputil.IsCircuitOpen(err) {
			return contracts.PriceSeries{}, fmt.Errorf("%w: %v", contracts.ErrProviderUnavailable, err)
		}
		return contracts.PriceSeries{}, err
	}

	if payload.Chart.Error != nil {
		return contracts.PriceSeries{}, fmt.Errorf("chart %s: %w", code, payload.Chart.Error)
	}
	if len(payload.Chart.Result) == 0 {
		return contracts.PriceSeries{Code: code}, nil
	}

	return parseChart(code, payload.Chart.Result[0]), nil
}

// parseChart converts columns into bars. Bars with any null price are
// dropped; a repeated trading date keeps the later bar.
func parseChart(code string, r chartResult) contracts.PriceSeries {
	series := contracts.PriceSeries{Code: code, Bars: make([]contracts.Bar, 0, len(r.Timestamp))}
	if len(r.Indicators.Quote) == 0 {
		return series
	}
	q := r.Indicators.Quote[0]

	for i, ts := range r.Timestamp {
		open, ok1 := at(q.Open, i)
		high, ok2 := at(q.High, i)
		low, ok3 := at(q.Low, i)
		closePrice, ok4 := at(q.Close, i)
		if !(ok1 && ok2 && ok3 && ok4) || closePrice <= 0 {
			continue
		}

		t := time.Unix(ts, 0).In(exchangeZone)
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		bar := contracts.Bar{Date: date, Open: open, High: high, Low: low, Close: closePrice}

		n := len(series.Bars)
		switch {
		case n > 0 && series.Bars[n-1].Date.Equal(date):
			series.Bars[n-1] = bar
		case n > 0 && date.Before(series.Bars[n-1].Date):
			// out of order; dropped
		default:
			series.Bars = append(series.Bars, bar)
		}
	}

	return series
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
