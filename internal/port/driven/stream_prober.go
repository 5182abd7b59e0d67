package driven

import (
	"context"
	"time"

	"github.com/iptvkit/aggregator/internal/probe"
)

// StreamProber defines the interface for checking whether a stream URL is
// actually serving media. This is a driven port implemented by concrete
// adapters (e.g., protocol-aware HTTP/TCP prober).
type StreamProber interface {
	// Probe checks the given stream URL within the timeout and reports the
	// result. Probe never returns an error; failures are encoded in the
	// result's kind and reason.
	Probe(ctx context.Context, url string, timeout time.Duration) probe.Result
}
