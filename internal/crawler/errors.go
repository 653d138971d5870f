package crawler

import (
	"errors"
	"fmt"
)

// Error categories raised by the fetch pipeline. Only ErrUpstream aborts a run.
var (
	ErrUpstream        = errors.New("upstream unavailable")
	ErrPageFetch       = errors.New("page fetch failed")
	ErrDetailFetch     = errors.New("detail fetch failed")
	ErrMalformedDetail = errors.New("malformed detail payload")
)

// StatusError reports an upstream response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// UpstreamError is returned when the listing total cannot be resolved.
// Nothing can be scheduled without it, so the run stops.
type UpstreamError struct {
	URL string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("resolve total count from %s: %v", e.URL, e.Err)
}

// Unwrap exposes the cause.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUpstream) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
