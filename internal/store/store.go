// Package store holds the in-memory canonical channel set. It owns the
// merge semantics that fold decoded playlist entries into deduplicated
// channels, and it is the single writer for liveness updates.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/m3u"
	"github.com/iptvkit/aggregator/internal/probe"
)

// MergeResult describes what one Merge call did.
type MergeResult struct {
	// Channel is the canonical channel the entry ended up in.
	Channel *channel.Channel
	// Created is true when the entry produced a new channel rather than
	// merging into an existing one.
	Created bool
	// AddedSources counts URLs that were new to the channel.
	AddedSources int
}

// Store is the canonical, deduplicated channel set. All access is guarded
// by a single RWMutex; merges and liveness updates take the write lock, so
// concurrent probe workers can never interleave partial updates.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*channel.Channel
	byTVGID map[string]*channel.Channel
	byKey   map[string]*channel.Channel

	matcher channel.Matcher
	groups  *channel.GroupMapper
}

// New creates an empty Store using the given matcher and group mapper.
func New(matcher channel.Matcher, groups *channel.GroupMapper) *Store {
	return &Store{
		byID:    make(map[string]*channel.Channel),
		byTVGID: make(map[string]*channel.Channel),
		byKey:   make(map[string]*channel.Channel),
		matcher: matcher,
		groups:  groups,
	}
}

// ByTVGID implements channel.Index.
func (s *Store) ByTVGID(tvgID string) (*channel.Channel, bool) {
	ch, ok := s.byTVGID[tvgID]
	return ch, ok
}

// ByNameGroup implements channel.Index.
func (s *Store) ByNameGroup(normalizedName, normalizedGroup string) (*channel.Channel, bool) {
	ch, ok := s.byKey[channel.EntryKey(normalizedName, normalizedGroup)]
	return ch, ok
}

// All implements channel.Index. Callers hold the store lock already; the
// slice is rebuilt per call and never escapes a merge.
func (s *Store) All() []*channel.Channel {
	out := make([]*channel.Channel, 0, len(s.byID))
	for _, ch := range s.byID {
		out = append(out, ch)
	}
	return out
}

// Merge folds one decoded playlist entry into the store. When the entry
// matches an existing channel its URLs are added as alternate sources and
// empty metadata is filled in; otherwise a new channel is created. Merging
// never changes an existing channel's primary URL. Merge is idempotent:
// replaying the same entry is a no-op.
func (s *Store) Merge(e m3u.Entry) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.groups.Normalize(e.GroupTitle)
	cand := channel.Candidate{
		TVGID:           e.TVGID,
		NormalizedName:  channel.NormalizeName(e.Name),
		NormalizedGroup: group,
	}

	if existing, ok := s.matcher.Find(s, cand); ok {
		added := 0
		if existing.AddSource(e.PrimaryURL, e.OriginURL) {
			added++
		}
		for _, alt := range e.AlternateURLs {
			if existing.AddSource(alt, e.OriginURL) {
				added++
			}
		}
		hadTVGID := existing.TVGID() != ""
		existing.FillMetadata(e.TVGID, e.TVGLogo)
		if !hadTVGID && existing.TVGID() != "" {
			s.byTVGID[existing.TVGID()] = existing
		}
		return MergeResult{Channel: existing, AddedSources: added}, nil
	}

	ch, err := channel.New(e.Name, e.TVGID, e.TVGName, e.TVGLogo, group, e.PrimaryURL, e.OriginURL, e.AlternateURLs)
	if err != nil {
		return MergeResult{}, err
	}
	s.index(ch)
	return MergeResult{Channel: ch, Created: true, AddedSources: len(ch.Sources())}, nil
}

// ApplyLiveness records the outcome of a probe batch for one channel. An
// outcome carrying Promote switches the primary URL to the working
// alternate before the liveness state is stored.
func (s *Store) ApplyLiveness(channelID string, o probe.Outcome, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.byID[channelID]
	if !ok {
		return channel.ErrChannelNotFound
	}

	if o.Online {
		if o.Promote {
			if err := ch.PromotePrimary(o.WorkingURL); err != nil {
				return err
			}
		}
		ch.SetLiveness(channel.OnlineLiveness(o.WorkingURL, o.ResponseTime, at))
		return nil
	}

	ch.SetLiveness(channel.OfflineLiveness(o.ErrReason, at))
	return nil
}

// Get returns a copy of the channel with the given id.
func (s *Store) Get(id string) (*channel.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.byID[id]
	if !ok {
		return nil, channel.ErrChannelNotFound
	}
	return ch.Clone(), nil
}

// Remove deletes the channel with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.byID[id]
	if !ok {
		return channel.ErrChannelNotFound
	}
	delete(s.byID, id)
	if ch.TVGID() != "" && s.byTVGID[ch.TVGID()] == ch {
		delete(s.byTVGID, ch.TVGID())
	}
	key := channel.EntryKey(channel.NormalizeName(ch.Name()), ch.GroupTitle())
	if s.byKey[key] == ch {
		delete(s.byKey, key)
	}
	return nil
}

// Replace swaps the store's content for the given channels. Used when
// rehydrating persisted state at startup.
func (s *Store) Replace(channels []*channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*channel.Channel, len(channels))
	s.byTVGID = make(map[string]*channel.Channel, len(channels))
	s.byKey = make(map[string]*channel.Channel, len(channels))
	for _, ch := range channels {
		s.index(ch)
	}
}

// Snapshot returns deep copies of every channel, sorted by group then name
// then id so output is stable across runs.
func (s *Store) Snapshot() []*channel.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*channel.Channel, 0, len(s.byID))
	for _, ch := range s.byID {
		out = append(out, ch.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupTitle() != out[j].GroupTitle() {
			return out[i].GroupTitle() < out[j].GroupTitle()
		}
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Groups returns the distinct group titles present in the store, sorted.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, ch := range s.byID {
		seen[ch.GroupTitle()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of channels in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// OnlineCount returns the number of channels currently marked online.
func (s *Store) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ch := range s.byID {
		if ch.Liveness().IsOnline() {
			n++
		}
	}
	return n
}

// index registers a channel under all lookup maps. Caller holds the write
// lock.
func (s *Store) index(ch *channel.Channel) {
	s.byID[ch.ID()] = ch
	if ch.TVGID() != "" {
		if _, taken := s.byTVGID[ch.TVGID()]; !taken {
			s.byTVGID[ch.TVGID()] = ch
		}
	}
	key := channel.EntryKey(channel.NormalizeName(ch.Name()), ch.GroupTitle())
	if _, taken := s.byKey[key]; !taken {
		s.byKey[key] = ch
	}
}
