package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/m3u"
	"github.com/iptvkit/aggregator/internal/probe"
	"github.com/iptvkit/aggregator/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	matcher := channel.Matcher{Policy: channel.MatchByBoth, Threshold: 0.85}
	return store.New(matcher, channel.DefaultGroupMapper())
}

func TestMergeCreatesChannel(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Merge(m3u.Entry{
		Name:       "CCTV-1",
		TVGID:      "cctv1",
		TVGLogo:    "http://logo/cctv1.png",
		GroupTitle: "央视频道",
		PrimaryURL: "http://a.example/cctv1.m3u8",
		OriginURL:  "http://a.example/list.m3u",
	})
	if err != nil {
		t.Fatalf("Merge() unexpected error = %v", err)
	}

	if !res.Created {
		t.Errorf("Merge() Created = false, want true")
	}
	if got := res.Channel.GroupTitle(); got != "CCTV" {
		t.Errorf("GroupTitle() = %q, want %q (group mapping applied)", got, "CCTV")
	}
	if got := res.Channel.PrimaryURL(); got != "http://a.example/cctv1.m3u8" {
		t.Errorf("PrimaryURL() = %q, want the entry's primary URL", got)
	}
	if got := res.Channel.Liveness().Status(); got != channel.StatusUntested {
		t.Errorf("new channel Liveness().Status() = %q, want %q", got, channel.StatusUntested)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestMergeByTVGID(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Merge(m3u.Entry{
		Name:       "CCTV-1",
		TVGID:      "cctv1",
		GroupTitle: "CCTV",
		PrimaryURL: "http://a.example/cctv1.m3u8",
		OriginURL:  "http://a.example/list.m3u",
	})
	if err != nil {
		t.Fatalf("first Merge() unexpected error = %v", err)
	}

	// Same tvg-id from a second source, with a name that would not match
	// textually.
	second, err := s.Merge(m3u.Entry{
		Name:       "中央一台",
		TVGID:      "cctv1",
		TVGLogo:    "http://logo/cctv1.png",
		GroupTitle: "其他",
		PrimaryURL: "http://b.example/ch1.m3u8",
		OriginURL:  "http://b.example/list.m3u",
	})
	if err != nil {
		t.Fatalf("second Merge() unexpected error = %v", err)
	}

	if second.Created {
		t.Errorf("second Merge() Created = true, want merge into existing")
	}
	if second.Channel.ID() != first.Channel.ID() {
		t.Errorf("second merge hit a different channel: %q vs %q", second.Channel.ID(), first.Channel.ID())
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	// The new URL becomes an alternate source, the primary stays put.
	if got := second.Channel.PrimaryURL(); got != "http://a.example/cctv1.m3u8" {
		t.Errorf("PrimaryURL() = %q, want the first-seen URL", got)
	}
	if !second.Channel.HasSource("http://b.example/ch1.m3u8") {
		t.Errorf("merged channel is missing the second source URL")
	}

	// Empty metadata is filled, never overwritten.
	if got := second.Channel.TVGLogo(); got != "http://logo/cctv1.png" {
		t.Errorf("TVGLogo() = %q, want the logo filled from the second entry", got)
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := newTestStore(t)

	entry := m3u.Entry{
		Name:       "HBO",
		TVGID:      "hbo.us",
		GroupTitle: "Movies",
		PrimaryURL: "http://a.example/hbo.m3u8",
		OriginURL:  "http://a.example/list.m3u",
	}

	if _, err := s.Merge(entry); err != nil {
		t.Fatalf("first Merge() unexpected error = %v", err)
	}

	res, err := s.Merge(entry)
	if err != nil {
		t.Fatalf("replayed Merge() unexpected error = %v", err)
	}

	if res.Created {
		t.Errorf("replayed Merge() Created = true, want false")
	}
	if res.AddedSources != 0 {
		t.Errorf("replayed Merge() AddedSources = %d, want 0", res.AddedSources)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if got := len(res.Channel.Sources()); got != 1 {
		t.Errorf("Sources() length = %d, want 1", got)
	}
}

func TestMergeFuzzyName(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Merge(m3u.Entry{
		Name:       "ESPN HD",
		GroupTitle: "Sports",
		PrimaryURL: "http://a.example/espn.m3u8",
	})
	if err != nil {
		t.Fatalf("first Merge() unexpected error = %v", err)
	}

	// Quality suffix differs; normalization makes the names identical.
	second, err := s.Merge(m3u.Entry{
		Name:       "ESPN FHD",
		GroupTitle: "Sports",
		PrimaryURL: "http://b.example/espn.m3u8",
	})
	if err != nil {
		t.Fatalf("second Merge() unexpected error = %v", err)
	}

	if second.Created {
		t.Errorf("second Merge() Created = true, want merge into existing")
	}
	if second.Channel.ID() != first.Channel.ID() {
		t.Errorf("normalized names did not merge into the same channel")
	}
}

func TestMergeDistinctChannelsStayDistinct(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Merge(m3u.Entry{
		Name:       "CCTV-1",
		GroupTitle: "CCTV",
		PrimaryURL: "http://a.example/1.m3u8",
	}); err != nil {
		t.Fatalf("Merge() unexpected error = %v", err)
	}

	res, err := s.Merge(m3u.Entry{
		Name:       "Discovery Channel",
		GroupTitle: "Documentary",
		PrimaryURL: "http://a.example/2.m3u8",
	})
	if err != nil {
		t.Fatalf("Merge() unexpected error = %v", err)
	}

	if !res.Created {
		t.Errorf("unrelated entry merged into an existing channel")
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestMergeEmptyNameRejected(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Merge(m3u.Entry{
		Name:       "   ",
		PrimaryURL: "http://a.example/1.m3u8",
	})
	if !errors.Is(err, channel.ErrEmptyName) {
		t.Errorf("Merge() error = %v, want %v", err, channel.ErrEmptyName)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestApplyLiveness(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("online", func(t *testing.T) {
		s := newTestStore(t)
		res := mustMerge(t, s, m3u.Entry{
			Name:       "HBO",
			PrimaryURL: "http://a.example/hbo.m3u8",
		})

		err := s.ApplyLiveness(res.Channel.ID(), probe.Outcome{
			Online:       true,
			WorkingURL:   "http://a.example/hbo.m3u8",
			ResponseTime: 120 * time.Millisecond,
		}, now)
		if err != nil {
			t.Fatalf("ApplyLiveness() unexpected error = %v", err)
		}

		got, err := s.Get(res.Channel.ID())
		if err != nil {
			t.Fatalf("Get() unexpected error = %v", err)
		}
		if !got.Liveness().IsOnline() {
			t.Errorf("channel not marked online")
		}
		if got.Liveness().WorkingURL() != "http://a.example/hbo.m3u8" {
			t.Errorf("WorkingURL() = %q, want the probed URL", got.Liveness().WorkingURL())
		}
		if got.PrimaryURL() != "http://a.example/hbo.m3u8" {
			t.Errorf("PrimaryURL() changed without promotion")
		}
	})

	t.Run("offline carries reason", func(t *testing.T) {
		s := newTestStore(t)
		res := mustMerge(t, s, m3u.Entry{
			Name:       "HBO",
			PrimaryURL: "http://a.example/hbo.m3u8",
		})

		err := s.ApplyLiveness(res.Channel.ID(), probe.Outcome{
			Online:    false,
			ErrKind:   probe.KindHTTPStatus,
			ErrReason: "HTTP 503",
		}, now)
		if err != nil {
			t.Fatalf("ApplyLiveness() unexpected error = %v", err)
		}

		got, _ := s.Get(res.Channel.ID())
		if got.Liveness().Status() != channel.StatusOffline {
			t.Errorf("Status() = %q, want %q", got.Liveness().Status(), channel.StatusOffline)
		}
		if got.Liveness().LastError() != "HTTP 503" {
			t.Errorf("LastError() = %q, want %q", got.Liveness().LastError(), "HTTP 503")
		}
	})

	t.Run("promotes working alternate", func(t *testing.T) {
		s := newTestStore(t)
		res := mustMerge(t, s, m3u.Entry{
			Name:          "HBO",
			PrimaryURL:    "http://a.example/hbo.m3u8",
			AlternateURLs: []string{"http://b.example/hbo.m3u8"},
		})

		err := s.ApplyLiveness(res.Channel.ID(), probe.Outcome{
			Online:       true,
			WorkingURL:   "http://b.example/hbo.m3u8",
			ResponseTime: 90 * time.Millisecond,
			Promote:      true,
		}, now)
		if err != nil {
			t.Fatalf("ApplyLiveness() unexpected error = %v", err)
		}

		got, _ := s.Get(res.Channel.ID())
		if got.PrimaryURL() != "http://b.example/hbo.m3u8" {
			t.Errorf("PrimaryURL() = %q, want the promoted alternate", got.PrimaryURL())
		}
		// The former primary stays available as a source.
		if !got.HasSource("http://a.example/hbo.m3u8") {
			t.Errorf("former primary URL dropped from sources")
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		s := newTestStore(t)
		err := s.ApplyLiveness("missing", probe.Outcome{Online: true, WorkingURL: "http://x"}, now)
		if !errors.Is(err, channel.ErrChannelNotFound) {
			t.Errorf("ApplyLiveness() error = %v, want %v", err, channel.ErrChannelNotFound)
		}
	})
}

func TestSnapshotSortedAndDetached(t *testing.T) {
	s := newTestStore(t)

	mustMerge(t, s, m3u.Entry{Name: "Zee News", GroupTitle: "News", PrimaryURL: "http://a/z.m3u8"})
	mustMerge(t, s, m3u.Entry{Name: "Animal Planet", GroupTitle: "Documentary", PrimaryURL: "http://a/a.m3u8"})
	mustMerge(t, s, m3u.Entry{Name: "BBC World News", GroupTitle: "News", PrimaryURL: "http://a/b.m3u8"})

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() length = %d, want 3", len(snap))
	}

	wantOrder := []string{"Animal Planet", "BBC World News", "Zee News"}
	for i, want := range wantOrder {
		if got := snap[i].Name(); got != want {
			t.Errorf("Snapshot()[%d].Name() = %q, want %q", i, got, want)
		}
	}

	// Mutating a snapshot copy must not leak into the store.
	snap[0].AddSource("http://rogue/extra.m3u8", "")
	got, _ := s.Get(snap[0].ID())
	if got.HasSource("http://rogue/extra.m3u8") {
		t.Errorf("snapshot mutation leaked into the store")
	}
}

func TestGroups(t *testing.T) {
	s := newTestStore(t)

	mustMerge(t, s, m3u.Entry{Name: "BBC News", GroupTitle: "News", PrimaryURL: "http://a/1"})
	mustMerge(t, s, m3u.Entry{Name: "CNN", GroupTitle: "News", PrimaryURL: "http://a/2"})
	mustMerge(t, s, m3u.Entry{Name: "Mystery Stream", PrimaryURL: "http://a/3"})

	got := s.Groups()
	want := []string{"News", channel.UncategorizedGroup}
	if len(got) != len(want) {
		t.Fatalf("Groups() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Groups()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	res := mustMerge(t, s, m3u.Entry{Name: "HBO", TVGID: "hbo.us", PrimaryURL: "http://a/hbo"})

	if err := s.Remove(res.Channel.ID()); err != nil {
		t.Fatalf("Remove() unexpected error = %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if err := s.Remove(res.Channel.ID()); !errors.Is(err, channel.ErrChannelNotFound) {
		t.Errorf("second Remove() error = %v, want %v", err, channel.ErrChannelNotFound)
	}

	// The tvg-id index must be cleared too, so a re-merge creates afresh.
	again, err := s.Merge(m3u.Entry{Name: "HBO", TVGID: "hbo.us", PrimaryURL: "http://a/hbo"})
	if err != nil {
		t.Fatalf("Merge() after Remove() unexpected error = %v", err)
	}
	if !again.Created {
		t.Errorf("Merge() after Remove() matched a deleted channel")
	}
}

func TestReplace(t *testing.T) {
	s := newTestStore(t)
	mustMerge(t, s, m3u.Entry{Name: "Old Channel", PrimaryURL: "http://a/old"})

	restored := channel.Reconstruct(
		"id-1", "HBO", "hbo.us", "", "", "Movies", "http://a/hbo",
		[]channel.Source{{URL: "http://a/hbo", Origin: "http://a/list.m3u"}},
		channel.UntestedLiveness(),
	)
	s.Replace([]*channel.Channel{restored})

	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if _, err := s.Get("id-1"); err != nil {
		t.Errorf("Get() after Replace() unexpected error = %v", err)
	}

	// Replaced content participates in matching.
	res, err := s.Merge(m3u.Entry{Name: "HBO", TVGID: "hbo.us", PrimaryURL: "http://b/hbo"})
	if err != nil {
		t.Fatalf("Merge() unexpected error = %v", err)
	}
	if res.Created {
		t.Errorf("Merge() did not match the rehydrated channel")
	}
}

func TestOnlineCount(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s := newTestStore(t)

	a := mustMerge(t, s, m3u.Entry{Name: "A", PrimaryURL: "http://a/1"})
	mustMerge(t, s, m3u.Entry{Name: "B", PrimaryURL: "http://a/2"})

	if err := s.ApplyLiveness(a.Channel.ID(), probe.Outcome{Online: true, WorkingURL: "http://a/1"}, now); err != nil {
		t.Fatalf("ApplyLiveness() unexpected error = %v", err)
	}

	if got := s.OnlineCount(); got != 1 {
		t.Errorf("OnlineCount() = %d, want 1", got)
	}
}

func mustMerge(t *testing.T, s *store.Store, e m3u.Entry) store.MergeResult {
	t.Helper()
	res, err := s.Merge(e)
	if err != nil {
		t.Fatalf("Merge(%q) unexpected error = %v", e.Name, err)
	}
	return res
}
