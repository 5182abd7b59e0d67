package driven

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/iptvkit/aggregator/internal/probe"
)

// maxSegmentChecks bounds how many media segment references an HLS probe
// verifies before giving up.
const maxSegmentChecks = 3

// defaultRTMPPort is used when an rtmp:// URL carries no explicit port.
const defaultRTMPPort = "1935"

// DefaultPlatformPatterns matches live-page URLs of third-party streaming
// platforms, which answer a plain HEAD with an HTML page regardless of
// whether the stream is live.
var DefaultPlatformPatterns = []string{
	`(?i)youtube\.com/(watch|live)`,
	`(?i)youtu\.be/`,
	`(?i)twitch\.tv/`,
	`(?i)live\.bilibili\.com/`,
	`(?i)douyu\.com/`,
	`(?i)huya\.com/`,
	`(?i)yy\.com/`,
}

// StreamProberHTTPAdapter implements the StreamProber port. It dispatches on
// the URL's protocol: TCP reachability for rtmp, segment verification for
// HLS playlists, a streaming read for live-platform pages, and a plain HEAD
// for everything else.
type StreamProberHTTPAdapter struct {
	httpClient *http.Client
	dialer     *net.Dialer
	platforms  []*regexp.Regexp
	logger     *slog.Logger
}

// NewStreamProberHTTPAdapter creates a prober. platformPatterns extends the
// built-in live-platform URL patterns; invalid patterns are rejected.
func NewStreamProberHTTPAdapter(platformPatterns []string, logger *slog.Logger) (*StreamProberHTTPAdapter, error) {
	patterns := make([]*regexp.Regexp, 0, len(DefaultPlatformPatterns)+len(platformPatterns))
	for _, p := range append(append([]string{}, DefaultPlatformPatterns...), platformPatterns...) {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid platform pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &StreamProberHTTPAdapter{
		// Per-probe deadlines come from the context; no client-level timeout.
		httpClient: &http.Client{},
		dialer:     &net.Dialer{},
		platforms:  patterns,
		logger:     logger,
	}, nil
}

// Probe checks the stream URL within the timeout. Failures never surface as
// errors; they are classified into the result's kind.
func (p *StreamProberHTTPAdapter) Probe(ctx context.Context, rawURL string, timeout time.Duration) probe.Result {
	if strings.TrimSpace(rawURL) == "" {
		return probe.Unavailable(probe.KindUnknown, probe.ErrEmptyURL.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	var res probe.Result
	switch {
	case strings.HasPrefix(strings.ToLower(rawURL), "rtmp://"):
		res = p.probeRTMP(ctx, rawURL)
	case isHLSPlaylist(rawURL):
		res = p.probeHLS(ctx, rawURL)
	case p.isPlatformURL(rawURL):
		res = p.probeStreaming(ctx, rawURL)
	default:
		res = p.probeHead(ctx, rawURL)
	}

	p.logger.Debug("probed stream",
		"url", rawURL,
		"available", res.IsAvailable(),
		"latency", time.Since(start),
		"reason", res.Reason(),
	)
	return res
}

func isHLSPlaylist(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.Contains(strings.ToLower(rawURL), ".m3u8")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

func (p *StreamProberHTTPAdapter) isPlatformURL(rawURL string) bool {
	for _, re := range p.platforms {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// probeRTMP checks TCP reachability of the rtmp host. No RTMP handshake is
// attempted; an accepted connection counts as available.
func (p *StreamProberHTTPAdapter) probeRTMP(ctx context.Context, rawURL string) probe.Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return probe.Unavailable(probe.KindUnknown, fmt.Sprintf("invalid rtmp url: %v", err))
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultRTMPPort
	}

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return classifyNetError(err)
	}
	conn.Close()

	return probe.Available(time.Since(start))
}

// probeHLS fetches the playlist and verifies that at least one referenced
// segment actually exists.
func (p *StreamProberHTTPAdapter) probeHLS(ctx context.Context, rawURL string) probe.Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return probe.Unavailable(probe.KindUnknown, err.Error())
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return classifyNetError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return probe.UnavailableStatus(resp.StatusCode)
	}

	// Playlists are small; cap the read defensively anyway.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return classifyNetError(err)
	}

	segments := extractSegmentRefs(string(body), rawURL, maxSegmentChecks)
	if len(segments) == 0 {
		return probe.Unavailable(probe.KindNoSegments, "playlist contains no segment references")
	}

	for _, seg := range segments {
		if p.segmentExists(ctx, seg) {
			return probe.Available(time.Since(start))
		}
	}

	// Report the deadline when that is what stopped the checks.
	if ctx.Err() != nil {
		return classifyNetError(ctx.Err())
	}
	return probe.Unavailable(probe.KindNoSegments, "no referenced segment answered")
}

// extractSegmentRefs pulls up to limit URI lines from an M3U8 body, resolved
// against the playlist URL. Variant playlist references count too: for a
// liveness check an existing sub-playlist is as good as a media segment.
func extractSegmentRefs(body, playlistURL string, limit int) []string {
	base, baseErr := url.Parse(playlistURL)

	var refs []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref := line
		if baseErr == nil {
			if rel, err := url.Parse(line); err == nil {
				ref = base.ResolveReference(rel).String()
			}
		}
		refs = append(refs, ref)
		if len(refs) == limit {
			break
		}
	}
	return refs
}

// segmentExists issues a HEAD against the segment, falling back to a ranged
// GET for servers that reject HEAD.
func (p *StreamProberHTTPAdapter) segmentExists(ctx context.Context, segURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, segURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return true
		}
		if resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusForbidden {
			return false
		}
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, segURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err = p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent
}

// probeStreaming issues a GET and treats the first non-empty chunk as proof
// of life. Platform live pages always answer HEAD with 200, so only actual
// body bytes count.
func (p *StreamProberHTTPAdapter) probeStreaming(ctx context.Context, rawURL string) probe.Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return probe.Unavailable(probe.KindUnknown, err.Error())
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return classifyNetError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return probe.UnavailableStatus(resp.StatusCode)
	}

	buf := make([]byte, 1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			return probe.Available(time.Since(start))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return probe.Unavailable(probe.KindUnknown, "empty response body")
			}
			return classifyNetError(err)
		}
	}
}

// probeHead is the default branch: available iff the URL answers 200.
func (p *StreamProberHTTPAdapter) probeHead(ctx context.Context, rawURL string) probe.Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return probe.Unavailable(probe.KindUnknown, err.Error())
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return classifyNetError(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return probe.UnavailableStatus(resp.StatusCode)
	}

	return probe.Available(time.Since(start))
}

// classifyNetError maps transport failures onto the probe error taxonomy.
func classifyNetError(err error) probe.Result {
	var dnsErr *net.DNSError
	var certErr *tls.CertificateVerificationError
	var recErr tls.RecordHeaderError
	var unkErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return probe.Unavailable(probe.KindTimeout, "timed out")
	case errors.As(err, &dnsErr):
		return probe.Unavailable(probe.KindDNSFailure, dnsErr.Error())
	case errors.Is(err, syscall.ECONNREFUSED):
		return probe.Unavailable(probe.KindConnectRefused, "connection refused")
	case errors.As(err, &certErr), errors.As(err, &recErr), errors.As(err, &unkErr), errors.As(err, &hostErr):
		return probe.Unavailable(probe.KindTLSError, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return probe.Unavailable(probe.KindTimeout, "timed out")
	}

	return probe.Unavailable(probe.KindUnknown, err.Error())
}
