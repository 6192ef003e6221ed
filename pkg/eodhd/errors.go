package eodhd

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned once a request keeps getting 429 past the retry ceiling.
var ErrRateLimited = errors.New("eodhd: rate limit exhausted")

// errTooManyRequests marks a single 429 response; it is retried, never returned.
var errTooManyRequests = errors.New("eodhd: status 429")

// StatusError is a non-success response other than 404 and 429.
type StatusError struct {
	Code int
	Path string // request path without the query, which carries the token
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("eodhd: status %d for %s", e.Code, e.Path)
	}
	return fmt.Sprintf("eodhd: status %d for %s: %s", e.Code, e.Path, e.Body)
}
