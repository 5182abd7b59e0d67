package driven

import (
	"context"
	"fmt"
)

// FetchErrorKind classifies playlist fetch failures so callers can report
// them without string matching.
type FetchErrorKind string

const (
	FetchErrTimeout    FetchErrorKind = "timeout"
	FetchErrConnection FetchErrorKind = "connection_error"
	FetchErrHTTPStatus FetchErrorKind = "http_status"
	FetchErrUnknown    FetchErrorKind = "unknown"
)

// FetchError describes why fetching a playlist failed.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	HTTPStatus int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrHTTPStatus:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.HTTPStatus)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// PlaylistSource defines the interface for fetching raw playlist text from
// external sources. This is a driven port that will be implemented by
// concrete adapters (e.g., HTTP client with caching).
type PlaylistSource interface {
	// Fetch retrieves the playlist body at url, decoded to UTF-8.
	// Failures are returned as *FetchError.
	Fetch(ctx context.Context, url string) (string, error)
}
