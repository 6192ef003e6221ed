package eodhd

import (
	"fmt"
	"time"
)

// Interval is the intraday bar resolution used for API requests.
type Interval string

// IntervalMeta holds the API value of an interval and the widest from/to span
// the provider accepts for it in a single request.
type IntervalMeta struct {
	APIValue string
	Minutes  int
	MaxSpan  time.Duration
}

const (
	Interval1Min  Interval = "1m"
	Interval5Min  Interval = "5m"
	Interval1Hour Interval = "1h"
)

const day = 24 * time.Hour

var validIntervals = map[Interval]IntervalMeta{
	Interval1Min:  {APIValue: "1m", Minutes: 1, MaxSpan: 120 * day},
	Interval5Min:  {APIValue: "5m", Minutes: 5, MaxSpan: 600 * day},
	Interval1Hour: {APIValue: "1h", Minutes: 60, MaxSpan: 7200 * day},
}

// IsValid checks if the Interval is a supported intraday resolution.
func (i Interval) IsValid() bool {
	_, ok := validIntervals[i]
	return ok
}

// ParseInterval parses a string into a valid IntervalMeta.
func ParseInterval(s string) (IntervalMeta, error) {
	meta, ok := validIntervals[Interval(s)]
	if !ok {
		return IntervalMeta{}, fmt.Errorf("invalid interval: %s", s)
	}
	return meta, nil
}

const (
	DefaultBaseURL     = "https://eodhd.com/api"
	DefaultWindow      = 120 * day
	DefaultMaxRetries  = 10
	DefaultBackoffUnit = 2 * time.Second
	DefaultTimeout     = 30 * time.Second

	// Approximate quota cost of one request, per attempt.
	intradayWeight = 5
	catalogWeight  = 10
)

// DefaultLowerBound is the oldest instant requested when the caller gives none.
var DefaultLowerBound = time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)

const datetimeLayout = "2006-01-02 15:04:05"
