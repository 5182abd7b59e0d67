package driver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/m3u"
	"github.com/iptvkit/aggregator/internal/probe"
	"github.com/iptvkit/aggregator/internal/store"
	"github.com/iptvkit/aggregator/internal/subscription"
)

type memChannelRepo struct {
	saved []*channel.Channel
}

func (m *memChannelRepo) ReplaceAll(_ context.Context, channels []*channel.Channel) error {
	m.saved = channels
	return nil
}

func (m *memChannelRepo) LoadAll(_ context.Context) ([]*channel.Channel, error) {
	return m.saved, nil
}

func (m *memChannelRepo) Ping(_ context.Context) error { return nil }

type memSubscriptionRepo struct {
	subs map[string]subscription.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{subs: make(map[string]subscription.Subscription)}
}

func (m *memSubscriptionRepo) Save(_ context.Context, sub subscription.Subscription) error {
	if _, ok := m.subs[sub.URL()]; ok {
		return subscription.ErrSubscriptionAlreadyExists
	}
	m.subs[sub.URL()] = sub
	return nil
}

func (m *memSubscriptionRepo) Update(_ context.Context, sub subscription.Subscription) error {
	if _, ok := m.subs[sub.URL()]; !ok {
		return subscription.ErrSubscriptionNotFound
	}
	m.subs[sub.URL()] = sub
	return nil
}

func (m *memSubscriptionRepo) FindByURL(_ context.Context, url string) (subscription.Subscription, error) {
	sub, ok := m.subs[url]
	if !ok {
		return subscription.Subscription{}, subscription.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (m *memSubscriptionRepo) FindAll(_ context.Context) ([]subscription.Subscription, error) {
	out := make([]subscription.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (m *memSubscriptionRepo) Delete(_ context.Context, url string) error {
	if _, ok := m.subs[url]; !ok {
		return subscription.ErrSubscriptionNotFound
	}
	delete(m.subs, url)
	return nil
}

func (m *memSubscriptionRepo) Ping(_ context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandlerTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(channel.Matcher{Policy: channel.MatchByBoth, Threshold: 0.85}, channel.DefaultGroupMapper())
}

func seedStoreChannel(t *testing.T, st *store.Store, name, group, url string) string {
	t.Helper()
	res, err := st.Merge(m3u.Entry{Name: name, GroupTitle: group, PrimaryURL: url})
	if err != nil {
		t.Fatalf("Merge(%q) unexpected error = %v", name, err)
	}
	return res.Channel.ID()
}

func markOnline(t *testing.T, st *store.Store, id, url string) {
	t.Helper()
	outcome := probe.Outcome{Online: true, WorkingURL: url, ResponseTime: 10 * time.Millisecond}
	if err := st.ApplyLiveness(id, outcome, time.Now()); err != nil {
		t.Fatalf("ApplyLiveness(%q) unexpected error = %v", id, err)
	}
}
