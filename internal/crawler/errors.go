package crawler

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is wrapped by FetchError when the server answers
// with a 4xx or 5xx status.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// FetchError describes a failed page fetch. It is fatal to the page and
// never to the run.
type FetchError struct {
	// URL is the page that could not be fetched.
	URL string

	// StatusCode is the HTTP status, or 0 if no response was received.
	StatusCode int

	// Err is the underlying network, timeout or status error.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
