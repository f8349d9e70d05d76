package yahoo

import (
	"github.com/wonny/bistpro/pkg/httputil"
	"github.com/wonny/bistpro/pkg/logger"
)

// DefaultChartURL is the public v8 chart endpoint
const DefaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// defaultConcurrency bounds parallel chart requests within one batch
const defaultConcurrency = 4

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance 가격 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient  *httputil.Client
	logger      *logger.Logger
	chartURL    string
	concurrency int
}

// NewClient creates a new Yahoo chart client. Rate limiting, retry and the
// circuit breaker are configured on httpClient.
func NewClient(httpClient *httputil.Client, chartURL string, log *logger.Logger) *Client {
	if chartURL == "" {
		chartURL = DefaultChartURL
	}
	return &Client{
		httpClient:  httpClient,
		logger:      log,
		chartURL:    chartURL,
		concurrency: defaultConcurrency,
	}
}

// WithConcurrency overrides the per-batch request parallelism
func (c *Client) WithConcurrency(n int) *Client {
	if n > 0 {
		c.concurrency = n
	}
	return c
}
