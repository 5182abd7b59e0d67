// Package channel holds the canonical Channel entity and the identity
// machinery (normalization, matching) used to deduplicate channels observed
// across subscription sources.
package channel

import (
	"strings"

	"github.com/google/uuid"
)

// Source records where one of a channel's stream URLs was observed.
type Source struct {
	URL    string
	Origin string
}

// Channel is the canonical, deduplicated representation of one broadcast
// stream. The id is assigned once at creation and never recomputed from
// mutable fields; all fuzzy lookup goes through the Matcher, never through
// structural equality.
type Channel struct {
	id         string
	name       string
	tvgID      string
	tvgName    string
	tvgLogo    string
	groupTitle string
	primaryURL string
	sources    []Source
	liveness   Liveness
}

// New creates a Channel from a decoded playlist entry. groupTitle is
// expected to be already normalized by the caller. The primary URL and every
// alternate are recorded as sources, deduplicated by URL.
func New(name, tvgID, tvgName, tvgLogo, groupTitle, primaryURL, origin string, alternates []string) (*Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if strings.TrimSpace(primaryURL) == "" {
		return nil, ErrEmptyPrimaryURL
	}

	c := &Channel{
		id:         uuid.NewString(),
		name:       name,
		tvgID:      tvgID,
		tvgName:    tvgName,
		tvgLogo:    tvgLogo,
		groupTitle: groupTitle,
		primaryURL: primaryURL,
		liveness:   UntestedLiveness(),
	}
	c.AddSource(primaryURL, origin)
	for _, alt := range alternates {
		c.AddSource(alt, origin)
	}
	return c, nil
}

// Reconstruct rebuilds a Channel from persisted state.
// Intended for repository adapters; skips validation.
func Reconstruct(id, name, tvgID, tvgName, tvgLogo, groupTitle, primaryURL string, sources []Source, liveness Liveness) *Channel {
	c := &Channel{
		id:         id,
		name:       name,
		tvgID:      tvgID,
		tvgName:    tvgName,
		tvgLogo:    tvgLogo,
		groupTitle: groupTitle,
		primaryURL: primaryURL,
		liveness:   liveness,
	}
	for _, s := range sources {
		c.AddSource(s.URL, s.Origin)
	}
	// sources must always cover the primary URL
	c.AddSource(primaryURL, "")
	return c
}

func (c *Channel) ID() string         { return c.id }
func (c *Channel) Name() string       { return c.name }
func (c *Channel) TVGID() string      { return c.tvgID }
func (c *Channel) TVGName() string    { return c.tvgName }
func (c *Channel) TVGLogo() string    { return c.tvgLogo }
func (c *Channel) GroupTitle() string { return c.groupTitle }
func (c *Channel) PrimaryURL() string { return c.primaryURL }
func (c *Channel) Liveness() Liveness { return c.liveness }

// Sources returns a copy of the channel's provenance records.
func (c *Channel) Sources() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// AddSource appends a provenance record unless the URL is already known.
// Reports whether the source was added.
func (c *Channel) AddSource(url, origin string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	for _, s := range c.sources {
		if s.URL == url {
			return false
		}
	}
	c.sources = append(c.sources, Source{URL: url, Origin: origin})
	return true
}

// HasSource reports whether the URL is one of the channel's sources.
func (c *Channel) HasSource(url string) bool {
	for _, s := range c.sources {
		if s.URL == url {
			return true
		}
	}
	return false
}

// FillMetadata fills tvg-id and tvg-logo from a candidate when the existing
// values are empty. Merging never overwrites present metadata.
func (c *Channel) FillMetadata(tvgID, tvgLogo string) {
	if c.tvgID == "" && tvgID != "" {
		c.tvgID = tvgID
	}
	if c.tvgLogo == "" && tvgLogo != "" {
		c.tvgLogo = tvgLogo
	}
}

// SetLiveness replaces the channel's liveness state.
func (c *Channel) SetLiveness(l Liveness) {
	c.liveness = l
}

// PromotePrimary makes url the channel's preferred stream URL. The URL must
// already be one of the channel's sources: promotion happens only when a
// probe found a working alternate, never during merging.
func (c *Channel) PromotePrimary(url string) error {
	if !c.HasSource(url) {
		return ErrUnknownSourceURL
	}
	c.primaryURL = url
	return nil
}

// Clone returns a deep copy, safe to hand out as part of a snapshot.
func (c *Channel) Clone() *Channel {
	cp := *c
	cp.sources = make([]Source, len(c.sources))
	copy(cp.sources, c.sources)
	return &cp
}
