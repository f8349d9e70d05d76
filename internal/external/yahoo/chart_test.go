package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/httputil"
	"github.com/wonny/bistpro/pkg/logger"
)

// 2024-06-03 07:00 UTC and the following days (10:00 Istanbul)
const day0 = 1717398000

func chartJSON(symbol string, closes ...string) string {
	ts := make([]string, len(closes))
	for i := range closes {
		ts[i] = fmt.Sprint(day0 + i*86400)
	}
	col := strings.Join(closes, ",")
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":%q,"currency":"TRY"},
		"timestamp":[%s],
		"indicators":{"quote":[{"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[]}]}}],"error":null}}`,
		symbol, strings.Join(ts, ","), col, col, col, col)
}

func newTestClient(url string) *Client {
	h := httputil.New(logger.Nop(), 2*time.Second).DisableRetry()
	return NewClient(h, url, logger.Nop())
}

func TestFetchChart(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartJSON("THYAO.IS", "100", "null", "102.5")))
	}))
	defer server.Close()

	series, err := newTestClient(server.URL).FetchChart(context.Background(), "THYAO.IS", contracts.LookbackYear)
	require.NoError(t, err)

	assert.Equal(t, "/THYAO.IS", gotPath)
	assert.Contains(t, gotQuery, "range=1y")
	assert.Contains(t, gotQuery, "interval=1d")

	require.Equal(t, 2, series.Len())
	assert.Equal(t, "THYAO.IS", series.Code)
	assert.Equal(t, 100.0, series.Bars[0].Close)
	assert.Equal(t, 102.5, series.Bars[1].Close)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), series.Bars[0].Date)
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), series.Bars[1].Date)
	assert.NoError(t, series.Validate())
}

func TestParseChart_RepeatedDateKeepsLatest(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	r := chartResult{Timestamp: []int64{day0, day0 + 3600, day0 + 86400}}
	r.Indicators.Quote = []chartQuote{{
		Open:  []*float64{v(1), v(2), v(3)},
		High:  []*float64{v(1), v(2), v(3)},
		Low:   []*float64{v(1), v(2), v(3)},
		Close: []*float64{v(1), v(2), v(3)},
	}}

	series := parseChart("X.IS", r)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 2.0, series.Bars[0].Close)
	assert.Equal(t, 3.0, series.Bars[1].Close)
}

func TestFetchChart_Errors(t *testing.T) {
	t.Run("chart error payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchChart(context.Background(), "NOPE.IS", contracts.LookbackYear)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No data found")
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchChart(context.Background(), "THYAO.IS", contracts.LookbackYear)
		assert.True(t, errors.Is(err, contracts.ErrProviderUnavailable))
	})
}

func TestFetchSeries_Partial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/BAD.IS":
			w.WriteHeader(http.StatusNotFound)
		case "/EMPTY.IS":
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		default:
			_, _ = w.Write([]byte(chartJSON(strings.TrimPrefix(r.URL.Path, "/"), "10", "11")))
		}
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).FetchSeries(context.Background(),
		[]string{"A.IS", "BAD.IS", "EMPTY.IS", "B.IS"}, contracts.LookbackMonth)
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.Equal(t, 2, got["A.IS"].Len())
	assert.Equal(t, 2, got["B.IS"].Len())
	_, ok := got["BAD.IS"]
	assert.False(t, ok)
}

func TestFetchSeries_AllFail(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).FetchSeries(context.Background(), []string{"A.IS", "B.IS"}, contracts.LookbackYear)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, contracts.ErrProviderUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchSeries_Empty(t *testing.T) {
	got, err := newTestClient("http://127.0.0.1:0").FetchSeries(context.Background(), nil, contracts.LookbackYear)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchSeries_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartJSON("A.IS", "10")))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchSeries(ctx, []string{"A.IS"}, contracts.LookbackYear)
	assert.True(t, errors.Is(err, context.Canceled))
}
