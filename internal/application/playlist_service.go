package application

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/m3u"
	"github.com/iptvkit/aggregator/internal/store"
)

// ExportOptions narrows which channels an export includes.
type ExportOptions struct {
	// OnlineOnly keeps only channels whose last probe succeeded.
	OnlineOnly bool
	// Group keeps only channels in the given group (exact, case-insensitive).
	Group string
}

// PlaylistService exports the aggregated channel set as an M3U playlist or
// as JSON. Channels come out sorted by group and name; each one is written
// with its best known URL, which is the probed working URL when there is one.
type PlaylistService struct {
	store *store.Store
}

// NewPlaylistService creates a new PlaylistService over the given store.
func NewPlaylistService(st *store.Store) *PlaylistService {
	return &PlaylistService{store: st}
}

// ExportM3U writes the channel set to w as an extended M3U playlist.
func (p *PlaylistService) ExportM3U(_ context.Context, w io.Writer, opts ExportOptions) error {
	enc := m3u.NewEncoder()

	for _, ch := range p.channels(opts) {
		enc.AddTrack(&m3u.Track{
			Name: ch.Name(),
			URI:  exportURL(ch),
			TVGTags: &m3u.TVGTags{
				ID:         ch.TVGID(),
				Name:       ch.TVGName(),
				Logo:       ch.TVGLogo(),
				GroupTitle: ch.GroupTitle(),
			},
		})
	}

	return enc.Encode(w)
}

// ChannelExport is the JSON shape of one exported channel.
type ChannelExport struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	TVGID          string    `json:"tvg_id,omitempty"`
	Logo           string    `json:"logo,omitempty"`
	Group          string    `json:"group"`
	URL            string    `json:"url"`
	SourceCount    int       `json:"source_count"`
	Status         string    `json:"status"`
	ResponseTimeMS int64     `json:"response_time_ms,omitempty"`
	LastCheckedAt  time.Time `json:"last_checked_at,omitzero"`
	LastError      string    `json:"last_error,omitempty"`
}

// ExportJSON writes the channel set to w as a JSON array.
func (p *PlaylistService) ExportJSON(_ context.Context, w io.Writer, opts ExportOptions) error {
	channels := p.channels(opts)
	out := make([]ChannelExport, 0, len(channels))
	for _, ch := range channels {
		liveness := ch.Liveness()
		out = append(out, ChannelExport{
			ID:             ch.ID(),
			Name:           ch.Name(),
			TVGID:          ch.TVGID(),
			Logo:           ch.TVGLogo(),
			Group:          ch.GroupTitle(),
			URL:            exportURL(ch),
			SourceCount:    len(ch.Sources()),
			Status:         string(liveness.Status()),
			ResponseTimeMS: liveness.ResponseTime().Milliseconds(),
			LastCheckedAt:  liveness.LastCheckedAt(),
			LastError:      liveness.LastError(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (p *PlaylistService) channels(opts ExportOptions) []*channel.Channel {
	return p.filterChannels(p.store.Snapshot(), opts)
}

func (p *PlaylistService) filterChannels(snapshot []*channel.Channel, opts ExportOptions) []*channel.Channel {
	filter := ChannelListFilter{Group: opts.Group, OnlineOnly: opts.OnlineOnly}
	filtered := make([]*channel.Channel, 0, len(snapshot))
	for _, ch := range snapshot {
		if !matchesChannelFilter(ch, filter) {
			continue
		}
		filtered = append(filtered, ch)
	}
	return filtered
}

// exportURL prefers the URL that last answered a probe over the nominal
// primary.
func exportURL(ch *channel.Channel) string {
	if url := ch.Liveness().WorkingURL(); url != "" {
		return url
	}
	return ch.PrimaryURL()
}
