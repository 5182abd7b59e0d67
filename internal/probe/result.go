// Package probe holds the value objects of stream liveness verification:
// per-URL probe results, the ephemeral tasks a batch is made of, and the
// order-independent derivation of a channel's final liveness outcome.
package probe

import "time"

// Result represents a single reachability check of one stream URL.
// It is an immutable value object.
type Result struct {
	available  bool
	latency    time.Duration
	kind       Kind
	httpStatus int
	message    string
}

// Available creates a successful probe result.
func Available(latency time.Duration) Result {
	return Result{available: true, latency: latency}
}

// Unavailable creates a failed probe result with its classified reason.
func Unavailable(kind Kind, message string) Result {
	if kind == KindNone {
		kind = KindUnknown
	}
	return Result{kind: kind, message: message}
}

// UnavailableStatus creates a failed probe result for a non-200 HTTP
// response.
func UnavailableStatus(status int) Result {
	return Result{kind: KindHTTPStatus, httpStatus: status, message: KindHTTPStatus.Describe(status)}
}

func (r Result) IsAvailable() bool      { return r.available }
func (r Result) Latency() time.Duration { return r.latency }
func (r Result) Kind() Kind             { return r.kind }
func (r Result) HTTPStatus() int        { return r.httpStatus }

// Reason returns a human-readable failure reason, empty for available
// results.
func (r Result) Reason() string {
	if r.available {
		return ""
	}
	if r.message != "" {
		return r.message
	}
	return r.kind.Describe(r.httpStatus)
}
