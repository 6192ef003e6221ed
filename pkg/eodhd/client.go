package eodhd

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client talks to the EODHD REST API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger

	interval    IntervalMeta
	window      time.Duration
	lowerBound  time.Time
	maxRetries  int
	backoffUnit time.Duration

	// totalWeight is the approximate quota spent; observed, never enforced.
	totalWeight atomic.Int64

	now func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for baseURL authenticated with apiToken.
func NewClient(baseURL, apiToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiToken:    apiToken,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      zap.NewNop(),
		interval:    validIntervals[Interval5Min],
		window:      DefaultWindow,
		lowerBound:  DefaultLowerBound,
		maxRetries:  DefaultMaxRetries,
		backoffUnit: DefaultBackoffUnit,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithInterval sets the intraday resolution.
func WithInterval(meta IntervalMeta) ClientOption {
	return func(c *Client) {
		c.interval = meta
	}
}

// WithWindow sets the span covered by one intraday request.
func WithWindow(d time.Duration) ClientOption {
	return func(c *Client) {
		c.window = d
	}
}

// WithLowerBound sets the oldest instant requested when FetchSeries gets no from bound.
func WithLowerBound(t time.Time) ClientOption {
	return func(c *Client) {
		c.lowerBound = t.UTC()
	}
}

// WithRetries sets how many times a 429 is retried and the linear backoff unit.
func WithRetries(max int, unit time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.backoffUnit = unit
	}
}

// TotalWeight returns the accumulated request cost weight.
func (c *Client) TotalWeight() int64 {
	return c.totalWeight.Load()
}
