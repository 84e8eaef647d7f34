package bridge

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const maxErrorBodyLength = 500

// ErrNotConfigured reports missing connection settings. Interactive flows
// surface it to the user; ambient sync absorbs it silently.
var ErrNotConfigured = errors.New("influx url and token are not configured")

// UpstreamError is a non-success response from the ingestion endpoint.
// Params: status line and truncated response body.
// Returns: classified delivery failure.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error renders the upstream failure with status and body excerpt.
// Params: none.
// Returns: error text.
func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("influx write rejected: %s", e.Status)
	}
	return fmt.Sprintf("influx write rejected: %s: %s", e.Status, e.Body)
}

// TransportError is a network-level delivery failure.
// Params: underlying transport error.
// Returns: classified delivery failure.
type TransportError struct {
	Err error
}

// Error renders the transport failure message.
// Params: none.
// Returns: error text.
func (e *TransportError) Error() string {
	return fmt.Sprintf("influx write failed: %v", e.Err)
}

// Unwrap exposes the underlying transport error.
// Params: none.
// Returns: wrapped error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// truncateErrorBody caps upstream response bodies included in errors so a
// verbose error page cannot flood logs or notifications. The cut backs up to
// a rune boundary so the excerpt stays valid UTF-8.
// Params: body raw response text.
// Returns: body capped at maxErrorBodyLength with an ellipsis marker.
func truncateErrorBody(body string) string {
	if len(body) <= maxErrorBodyLength {
		return body
	}

	cut := maxErrorBodyLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "…"
}
