package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"eodsync/internal/metrics"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

type pageKind int

const (
	pageOK pageKind = iota
	pageEmpty
	pageRateLimited
	pageFailed
)

func (k pageKind) String() string {
	switch k {
	case pageOK:
		return "ok"
	case pageEmpty:
		return "empty"
	case pageRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// page is the outcome of one logical request. An empty page (404) carries no
// records and no error; a rate limited or failed page always comes with one.
type page struct {
	kind    pageKind
	records []json.RawMessage
}

// getRecords requests path and decodes a JSON array, retrying 429 responses
// with a linear backoff of attempt * backoffUnit.
func (c *Client) getRecords(ctx context.Context, path string, query url.Values, weight int64) (page, error) {
	var (
		p        page
		attempts int
	)

	err := retry.Do(
		func() error {
			attempts++
			c.totalWeight.Add(weight)
			metrics.AddRequestWeight(weight)

			var err error
			p, err = c.do(ctx, path, query)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errTooManyRequests)
		}),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * c.backoffUnit
		}),
		retry.OnRetry(func(n uint, err error) {
			if int(n) >= c.maxRetries {
				return
			}
			c.logger.Warn("rate limited by provider, backing off",
				zap.String("path", path),
				zap.Uint("attempt", n+1),
				zap.Duration("sleep", time.Duration(n+1)*c.backoffUnit),
			)
		}),
	)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, errTooManyRequests):
		return page{kind: pageRateLimited}, fmt.Errorf("%w: got status 429 %d times in a row for %s", ErrRateLimited, attempts, path)
	default:
		return page{kind: pageFailed}, err
	}
}

// do issues a single GET. The token only ever lives in the query, so errors
// mention path alone.
func (c *Client) do(ctx context.Context, path string, query url.Values) (page, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("api_token", c.apiToken)
	q.Set("fmt", "json")

	c.logger.Debug("GET", zap.String("path", path), zap.String("from", q.Get("from")), zap.String("to", q.Get("to")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return page{kind: pageFailed}, fmt.Errorf("creating request for %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		metrics.ObserveResponse("error")
		return page{kind: pageFailed}, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveResponse("429")
		_, _ = io.Copy(io.Discard, resp.Body)
		return page{kind: pageRateLimited}, errTooManyRequests
	case resp.StatusCode == http.StatusNotFound:
		metrics.ObserveResponse("404")
		_, _ = io.Copy(io.Discard, resp.Body)
		return page{kind: pageEmpty}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.ObserveResponse("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return page{kind: pageFailed}, &StatusError{Code: resp.StatusCode, Path: path, Body: string(body)}
	}
	metrics.ObserveResponse("2xx")

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return page{kind: pageFailed}, fmt.Errorf("decode %s: %w", path, err)
	}
	return page{kind: pageOK, records: records}, nil
}
