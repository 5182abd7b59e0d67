// Package m3u provides decoding and encoding of M3U/M3U8 playlist text.
package m3u

import (
	"net/url"
	"regexp"
	"strings"
)

// Entry is one channel entry decoded from an M3U playlist, before any
// merging or deduplication has happened.
type Entry struct {
	Name          string
	TVGID         string
	TVGName       string
	TVGLogo       string
	GroupTitle    string
	PrimaryURL    string
	AlternateURLs []string
	OriginURL     string
}

// DecodeResult carries the decoded entries plus the number of malformed or
// URL-less entries that were skipped.
type DecodeResult struct {
	Entries []Entry
	Skipped int
}

var attrPattern = regexp.MustCompile(`([a-zA-Z0-9-]+)="([^"]*)"`)

// urlTokenSeparators split a URL line that packs several candidate
// addresses into one line.
var urlTokenSeparators = regexp.MustCompile(`[;#\s]+`)

// Decode parses raw M3U playlist text into entries. Malformed entries are
// skipped and counted, never fatal. The only hard failure is input that does
// not start with #EXTM3U (after BOM/whitespace stripping), which returns
// ErrInvalidFormat and zero entries.
//
// originURL, when non-empty, is used to resolve scheme-less URL tokens
// against the origin's scheme, host and directory path.
func Decode(content, originURL string) (DecodeResult, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, "#EXTM3U") {
		return DecodeResult{}, ErrInvalidFormat
	}

	var res DecodeResult
	lines := strings.Split(trimmed, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}

		// The URL line is the next non-comment, non-empty line before the
		// following #EXTINF.
		urlLine := ""
		j := i + 1
		for ; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				continue
			}
			if strings.HasPrefix(next, "#EXTINF:") {
				break
			}
			if strings.HasPrefix(next, "#") {
				continue
			}
			urlLine = next
			break
		}
		if urlLine == "" {
			res.Skipped++
			continue
		}
		i = j

		entry := parseExtinf(line)
		entry.OriginURL = originURL

		urls := extractURLs(urlLine, originURL)
		if len(urls) == 0 {
			res.Skipped++
			continue
		}
		entry.PrimaryURL = urls[0]
		entry.AlternateURLs = urls[1:]

		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

// parseExtinf extracts the tvg-* attributes and the display name from an
// #EXTINF line. The name is the tail after the last comma.
func parseExtinf(line string) Entry {
	var e Entry
	for _, m := range attrPattern.FindAllStringSubmatch(line, -1) {
		switch strings.ToLower(m[1]) {
		case "tvg-id":
			e.TVGID = m[2]
		case "tvg-name":
			e.TVGName = m[2]
		case "tvg-logo":
			e.TVGLogo = m[2]
		case "group-title":
			e.GroupTitle = m[2]
		}
	}
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		e.Name = strings.TrimSpace(line[idx+1:])
	}
	if e.Name == "" {
		e.Name = e.TVGName
	}
	return e
}

// extractURLs splits a URL line into candidate tokens and keeps only the
// ones with a recognized stream scheme. Scheme-less tokens are resolved
// against the origin URL first.
func extractURLs(urlLine, originURL string) []string {
	tokens := urlTokenSeparators.Split(urlLine, -1)
	var urls []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !hasStreamScheme(tok) && originURL != "" {
			tok = resolveRelative(originURL, tok)
		}
		if hasStreamScheme(tok) {
			urls = append(urls, tok)
		}
	}
	return urls
}

func hasStreamScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "rtmp://")
}

// resolveRelative resolves a scheme-less reference against the origin's
// scheme, host and directory path. Unparseable input is returned unchanged.
func resolveRelative(originURL, ref string) string {
	base, err := url.Parse(originURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}
