package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iptvkit/aggregator/internal/m3u"
	"github.com/iptvkit/aggregator/internal/metrics"
	"github.com/iptvkit/aggregator/internal/port/driven"
	"github.com/iptvkit/aggregator/internal/store"
)

// ErrRefreshInProgress is returned when a refresh cycle is requested while
// another one is still running.
var ErrRefreshInProgress = errors.New("a refresh cycle is already in progress")

// RefreshSummary reports what one refresh cycle did.
type RefreshSummary struct {
	Sources         int
	SourcesFailed   int
	EntriesDecoded  int
	EntriesSkipped  int
	ChannelsCreated int
	ChannelsTotal   int
	Probe           BatchSummary
}

// RefreshService runs the full fetch-decode-merge-probe-persist cycle. Only
// one cycle may run at a time; concurrent requests are rejected rather than
// queued.
type RefreshService struct {
	subscriptionRepo driven.SubscriptionRepository
	channelRepo      driven.ChannelRepository
	source           driven.PlaylistSource
	store            *store.Store
	probeService     *ProbeService
	probeOptions     ProbeOptions
	logger           *slog.Logger
	now              func() time.Time

	mu sync.Mutex
}

// NewRefreshService creates a new RefreshService with the required dependencies.
func NewRefreshService(
	subscriptionRepo driven.SubscriptionRepository,
	channelRepo driven.ChannelRepository,
	source driven.PlaylistSource,
	st *store.Store,
	probeService *ProbeService,
	probeOptions ProbeOptions,
	logger *slog.Logger,
) *RefreshService {
	return &RefreshService{
		subscriptionRepo: subscriptionRepo,
		channelRepo:      channelRepo,
		source:           source,
		store:            st,
		probeService:     probeService,
		probeOptions:     probeOptions,
		logger:           logger,
		now:              time.Now,
	}
}

// Refresh runs one full cycle: fetch every subscription, merge the decoded
// entries into the store, probe liveness, then persist the result. A failing
// subscription is marked failed and skipped; it never aborts the cycle.
// Returns ErrRefreshInProgress when a cycle is already running.
func (s *RefreshService) Refresh(ctx context.Context) (RefreshSummary, error) {
	if !s.mu.TryLock() {
		return RefreshSummary{}, ErrRefreshInProgress
	}
	defer s.mu.Unlock()

	start := s.now()
	var summary RefreshSummary

	subs, err := s.subscriptionRepo.FindAll(ctx)
	if err != nil {
		metrics.RecordRefresh("failed")
		return summary, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	summary.Sources = len(subs)

	s.logger.Info("starting refresh cycle", "sources", len(subs))

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			metrics.RecordRefresh("failed")
			return summary, err
		}

		count, skipped, created, ferr := s.refreshSource(ctx, sub.URL())
		now := s.now()
		if ferr != nil {
			summary.SourcesFailed++
			s.logger.Warn("subscription fetch failed", "url", sub.URL(), "error", ferr)

			var fetchErr *driven.FetchError
			if errors.As(ferr, &fetchErr) {
				metrics.RecordFetchError(sub.URL(), string(fetchErr.Kind))
			} else {
				metrics.RecordFetchError(sub.URL(), string(driven.FetchErrUnknown))
			}

			if uerr := s.subscriptionRepo.Update(ctx, sub.MarkFailed(now, ferr.Error())); uerr != nil {
				s.logger.Error("failed to record subscription failure", "url", sub.URL(), "error", uerr)
			}
			continue
		}

		summary.EntriesDecoded += count
		summary.EntriesSkipped += skipped
		summary.ChannelsCreated += created
		if uerr := s.subscriptionRepo.Update(ctx, sub.MarkUpdated(now, count)); uerr != nil {
			s.logger.Error("failed to record subscription update", "url", sub.URL(), "error", uerr)
		}
	}

	summary.ChannelsTotal = s.store.Len()

	probeSummary, probeErr := s.probeService.RunBatch(ctx, s.probeOptions)
	summary.Probe = probeSummary
	if probeErr != nil {
		metrics.RecordRefresh("failed")
		return summary, probeErr
	}

	// Persistence failures leave the in-memory set as source of truth; the
	// next successful cycle will persist it.
	if perr := s.channelRepo.ReplaceAll(ctx, s.store.Snapshot()); perr != nil {
		s.logger.Error("failed to persist channel set", "error", perr)
		metrics.RecordRefresh("partial")
		return summary, fmt.Errorf("failed to persist channels: %w", perr)
	}

	result := "ok"
	if summary.SourcesFailed > 0 {
		result = "partial"
	}
	metrics.RecordRefresh(result)
	metrics.RefreshDuration.Observe(s.now().Sub(start).Seconds())

	s.logger.Info("refresh cycle finished",
		"sources", summary.Sources,
		"sources_failed", summary.SourcesFailed,
		"entries", summary.EntriesDecoded,
		"skipped", summary.EntriesSkipped,
		"created", summary.ChannelsCreated,
		"channels", summary.ChannelsTotal,
		"online", summary.Probe.Online,
		"duration", s.now().Sub(start),
	)

	return summary, nil
}

// refreshSource fetches and merges one subscription. Returns the number of
// decoded entries, the number of skipped malformed entries, and how many
// channels the merge created.
func (s *RefreshService) refreshSource(ctx context.Context, url string) (int, int, int, error) {
	body, err := s.source.Fetch(ctx, url)
	if err != nil {
		return 0, 0, 0, err
	}

	decoded, err := m3u.Decode(body, url)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to decode playlist: %w", err)
	}

	created := 0
	for _, entry := range decoded.Entries {
		res, merr := s.store.Merge(entry)
		if merr != nil {
			// A malformed entry only costs itself, never the source.
			decoded.Skipped++
			continue
		}
		if res.Created {
			created++
		}
	}

	return len(decoded.Entries), decoded.Skipped, created, nil
}
