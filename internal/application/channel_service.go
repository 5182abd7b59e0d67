package application

import (
	"context"
	"strings"

	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/port/driven"
	"github.com/iptvkit/aggregator/internal/store"
)

// ChannelListFilter narrows the channel listing.
type ChannelListFilter struct {
	// Group keeps only channels in the given group (exact, case-insensitive).
	Group string
	// OnlineOnly keeps only channels whose last probe succeeded.
	OnlineOnly bool
	// Search keeps channels whose name contains the term (case-insensitive).
	Search string
}

// ChannelService provides read and removal use cases over the in-memory
// channel set. Channels are created by the refresh cycle, never directly.
type ChannelService struct {
	store       *store.Store
	channelRepo driven.ChannelRepository
}

// NewChannelService creates a new ChannelService.
func NewChannelService(st *store.Store, channelRepo driven.ChannelRepository) *ChannelService {
	return &ChannelService{
		store:       st,
		channelRepo: channelRepo,
	}
}

// GetChannel retrieves a channel by its ID.
// Returns channel.ErrChannelNotFound if the channel does not exist.
func (s *ChannelService) GetChannel(_ context.Context, id string) (*channel.Channel, error) {
	return s.store.Get(id)
}

// ListChannels retrieves all channels matching the filter, sorted by group
// and name.
func (s *ChannelService) ListChannels(_ context.Context, filter ChannelListFilter) []*channel.Channel {
	snapshot := s.store.Snapshot()
	if filter.Group == "" && !filter.OnlineOnly && filter.Search == "" {
		return snapshot
	}

	filtered := make([]*channel.Channel, 0, len(snapshot))
	for _, ch := range snapshot {
		if !matchesChannelFilter(ch, filter) {
			continue
		}
		filtered = append(filtered, ch)
	}

	return filtered
}

// GroupCount is one distinct group title with its channel count.
type GroupCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListGroups retrieves the distinct group titles present in the channel set,
// with per-group channel counts, sorted by name.
func (s *ChannelService) ListGroups(_ context.Context) []GroupCount {
	counts := make(map[string]int)
	for _, ch := range s.store.Snapshot() {
		counts[ch.GroupTitle()]++
	}

	out := make([]GroupCount, 0, len(counts))
	for _, name := range s.store.Groups() {
		out = append(out, GroupCount{Name: name, Count: counts[name]})
	}
	return out
}

// DeleteChannel removes a channel from the in-memory set and persists the
// shrunk snapshot. The channel reappears on the next refresh if its sources
// still carry it.
// Returns channel.ErrChannelNotFound if the channel does not exist.
func (s *ChannelService) DeleteChannel(ctx context.Context, id string) error {
	if err := s.store.Remove(id); err != nil {
		return err
	}

	return s.channelRepo.ReplaceAll(ctx, s.store.Snapshot())
}

func matchesChannelFilter(ch *channel.Channel, filter ChannelListFilter) bool {
	if filter.Group != "" && !strings.EqualFold(ch.GroupTitle(), filter.Group) {
		return false
	}
	if filter.OnlineOnly && ch.Liveness().Status() != channel.StatusOnline {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(ch.Name()), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}
