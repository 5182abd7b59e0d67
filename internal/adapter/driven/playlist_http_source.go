package driven

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/iptvkit/aggregator/internal/cache"
	"github.com/iptvkit/aggregator/internal/circuitbreaker"
	"github.com/iptvkit/aggregator/internal/metrics"
	"github.com/iptvkit/aggregator/internal/port/driven"
	"github.com/iptvkit/aggregator/internal/probe"
)

// maxPlaylistBytes caps how much playlist text one fetch will read.
const maxPlaylistBytes = 64 << 20

// PlaylistHTTPSource implements the PlaylistSource port over HTTP. Each
// subscription URL gets its own circuit breaker, fetched bodies are decoded
// to UTF-8 and cached on disk, and a failed fetch falls back to the last
// cached copy when one exists.
type PlaylistHTTPSource struct {
	httpClient *http.Client
	cache      cache.Store
	logger     *slog.Logger

	breakerCfg circuitbreaker.Config

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker
}

// NewPlaylistHTTPSource creates an HTTP playlist source. store may be nil to
// disable the cache fallback.
func NewPlaylistHTTPSource(timeout time.Duration, store cache.Store, breakerCfg circuitbreaker.Config, logger *slog.Logger) *PlaylistHTTPSource {
	return &PlaylistHTTPSource{
		httpClient: &http.Client{Timeout: timeout},
		cache:      store,
		logger:     logger,
		breakerCfg: breakerCfg,
		breakers:   make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// Fetch retrieves the playlist at url, decoded to UTF-8. On upstream
// failure the last cached body is served instead; only when both the fetch
// and the cache miss does Fetch return a *driven.FetchError.
func (s *PlaylistHTTPSource) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	cb := s.breakerFor(url)
	err := cb.Execute(func() error {
		fetched, ferr := s.fetch(ctx, url)
		if ferr != nil {
			return ferr
		}
		body = fetched
		return nil
	})
	metrics.SetCircuitBreakerState(url, cb.State().String())

	if err == nil {
		if s.cache != nil {
			if cerr := s.cache.Set(url, []byte(body)); cerr != nil {
				s.logger.Warn("failed to cache playlist", "url", url, "error", cerr)
			}
		}
		return body, nil
	}

	if s.cache != nil {
		if entry, cerr := s.cache.Get(url); cerr == nil {
			s.logger.Warn("serving stale cached playlist after fetch failure",
				"url", url,
				"fetched_at", entry.FetchedAt,
				"error", err,
			)
			return string(entry.Body), nil
		}
	}

	var fetchErr *driven.FetchError
	if errors.As(err, &fetchErr) {
		return "", err
	}
	// Breaker rejections and other non-transport failures still surface as
	// fetch errors to the caller.
	return "", &driven.FetchError{Kind: driven.FetchErrConnection, URL: url, Err: err}
}

func (s *PlaylistHTTPSource) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &driven.FetchError{Kind: driven.FetchErrUnknown, URL: url, Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", classifyFetchError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", &driven.FetchError{Kind: driven.FetchErrHTTPStatus, URL: url, HTTPStatus: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes))
	if err != nil {
		return "", classifyFetchError(url, err)
	}

	return decodePlaylist(raw), nil
}

// decodePlaylist converts raw playlist bytes to UTF-8. Valid UTF-8 passes
// through; otherwise GBK is tried (common for Chinese IPTV lists), and
// Latin-1 is the final fallback since it accepts any byte sequence.
func decodePlaylist(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	if decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw); err == nil {
		if !strings.ContainsRune(string(decoded), utf8.RuneError) {
			return string(decoded)
		}
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func classifyFetchError(url string, err error) *driven.FetchError {
	switch classifyNetError(err).Kind() {
	case probe.KindTimeout:
		return &driven.FetchError{Kind: driven.FetchErrTimeout, URL: url, Err: err}
	case probe.KindConnectRefused, probe.KindDNSFailure, probe.KindTLSError:
		return &driven.FetchError{Kind: driven.FetchErrConnection, URL: url, Err: err}
	}
	return &driven.FetchError{Kind: driven.FetchErrUnknown, URL: url, Err: err}
}

func (s *PlaylistHTTPSource) breakerFor(url string) circuitbreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[url]
	if !ok {
		cfg := s.breakerCfg
		cfg.Logger = s.logger
		cfg.Source = url
		cb = circuitbreaker.New(cfg)
		s.breakers[url] = cb
	}
	return cb
}

// BreakerState reports the circuit state for a subscription URL, for
// observability endpoints.
func (s *PlaylistHTTPSource) BreakerState(url string) circuitbreaker.State {
	return s.breakerFor(url).State()
}
