package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// FetchSeries downloads the intraday history of symbol between from and to.
// A zero to means now, a zero from means the client's lower bound.
//
// The range is walked backwards in fixed windows, one request each, and stops
// once the walk reaches from. A 404 window contributes nothing; any other
// failure aborts the whole series.
func (c *Client) FetchSeries(ctx context.Context, symbol Symbol, to, from time.Time) ([]Bar, error) {
	if to.IsZero() {
		to = c.now()
	}
	if from.IsZero() {
		from = c.lowerBound
	}
	to, from = to.UTC(), from.UTC()
	if to.Before(from) {
		return nil, fmt.Errorf("fetch %s: to (%s) is before from (%s)", symbol, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	if c.window <= 0 {
		return nil, errors.New("fetch series: window must be positive")
	}

	var (
		bars     []Bar
		seen     = make(map[int64]struct{})
		dropped  int
		repeated int
		notFound int // 404 windows
		blank    int // 2xx windows with no records
		path     = "/intraday/" + url.PathEscape(symbol.Key())
	)
	for upper := to; upper.After(from); {
		lower := upper.Add(-c.window)
		if lower.Before(from) {
			lower = from
		}

		query := url.Values{}
		query.Set("interval", c.interval.APIValue)
		query.Set("from", strconv.FormatInt(lower.Unix(), 10))
		query.Set("to", strconv.FormatInt(upper.Unix(), 10))

		p, err := c.getRecords(ctx, path, query, intradayWeight)
		if err != nil {
			return nil, fmt.Errorf("fetch %s window %s..%s: %w",
				symbol, lower.Format(time.DateOnly), upper.Format(time.DateOnly), err)
		}

		switch p.kind {
		case pageEmpty:
			notFound++
		case pageOK:
			if len(p.records) == 0 {
				blank++
			}
		}
		c.logger.Debug("window fetched",
			zap.String("symbol", symbol.Key()),
			zap.Stringer("kind", p.kind),
			zap.Int("records", len(p.records)),
		)

		// adjacent windows share their boundary second
		parsed, n := ParseBars(p.records)
		for _, b := range parsed {
			ts := b.Timestamp.Unix()
			if _, ok := seen[ts]; ok {
				repeated++
				continue
			}
			seen[ts] = struct{}{}
			bars = append(bars, b)
		}
		dropped += n

		upper = lower
	}

	if dropped > 0 {
		c.logger.Debug("skipped malformed bars", zap.String("symbol", symbol.Key()), zap.Int("dropped", dropped))
	}
	c.logger.Debug("series fetched",
		zap.String("symbol", symbol.Key()),
		zap.Int("bars", len(bars)),
		zap.Int("not_found_windows", notFound),
		zap.Int("blank_windows", blank),
		zap.Int("repeated_bars", repeated),
	)
	return bars, nil
}
