package probe

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyURL = errors.New("probe URL cannot be empty")
)

// Kind classifies why a probe found a URL unavailable.
type Kind string

const (
	KindNone           Kind = ""
	KindConnectRefused Kind = "connect_refused"
	KindTimeout        Kind = "timeout"
	KindDNSFailure     Kind = "dns_failure"
	KindTLSError       Kind = "tls_error"
	KindHTTPStatus     Kind = "http_status"
	KindNoSegments     Kind = "no_segments_found"
	KindUnknown        Kind = "unknown"
)

// Describe renders a failure kind (plus HTTP status, when relevant) as a
// human-readable reason for liveness records.
func (k Kind) Describe(httpStatus int) string {
	switch k {
	case KindHTTPStatus:
		return fmt.Sprintf("HTTP %d", httpStatus)
	case KindConnectRefused:
		return "connection refused"
	case KindTimeout:
		return "timeout"
	case KindDNSFailure:
		return "DNS lookup failed"
	case KindTLSError:
		return "TLS error"
	case KindNoSegments:
		return "no media segments found"
	case KindUnknown:
		return "unknown error"
	}
	return string(k)
}
