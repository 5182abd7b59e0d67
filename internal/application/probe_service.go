package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/metrics"
	"github.com/iptvkit/aggregator/internal/port/driven"
	"github.com/iptvkit/aggregator/internal/probe"
	"github.com/iptvkit/aggregator/internal/store"
)

// Progress is a snapshot of a running probe batch, reported after each
// channel's liveness is finalized.
type Progress struct {
	CompletedChannels int
	TotalChannels     int
	Online            int
	Offline           int
}

// ProgressFunc receives batch progress. Callbacks run synchronously from
// worker goroutines and must be fast.
type ProgressFunc func(Progress)

// ProbeOptions controls one probe batch.
type ProbeOptions struct {
	// TestAllSources adds one task per alternate source URL on top of the
	// per-channel primary task.
	TestAllSources bool
	// Concurrency bounds the worker pool. Values below 1 fall back to 10.
	Concurrency int
	// Timeout applies to each individual URL check.
	Timeout time.Duration
	// OnProgress, when set, is invoked after each finalized channel.
	OnProgress ProgressFunc
}

// BatchSummary reports what a finished probe batch did.
type BatchSummary struct {
	ChannelsProbed int
	Online         int
	Offline        int
}

// ProbeService checks stream liveness for the whole channel set. All checks
// for one channel are aggregated before its liveness is finalized, so the
// unordered completion of pool workers can never produce a lost update.
type ProbeService struct {
	store  *store.Store
	prober driven.StreamProber
	logger *slog.Logger
	now    func() time.Time
}

// NewProbeService creates a new ProbeService over the given store and prober.
func NewProbeService(st *store.Store, prober driven.StreamProber, logger *slog.Logger) *ProbeService {
	return &ProbeService{
		store:  st,
		prober: prober,
		logger: logger,
		now:    time.Now,
	}
}

// channelBatch tracks the in-flight checks of one channel within a batch.
type channelBatch struct {
	pending int
	results []probe.TaskResult
	applied bool
}

// RunBatch probes every channel and applies the derived liveness to the
// store. On cancellation, channels whose completed checks already allow a
// verdict still get one; channels with no completed check keep their prior
// state. The returned summary covers only finalized channels.
func (s *ProbeService) RunBatch(ctx context.Context, opts ProbeOptions) (BatchSummary, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 10
	}

	snapshot := s.store.Snapshot()
	tasks := buildTasks(snapshot, opts.TestAllSources)

	s.logger.Info("starting probe batch",
		"channels", len(snapshot),
		"tasks", len(tasks),
		"concurrency", opts.Concurrency,
		"test_all_sources", opts.TestAllSources,
	)

	var (
		mu       sync.Mutex
		batches  = make(map[string]*channelBatch, len(snapshot))
		summary  BatchSummary
		progress Progress
	)
	for _, task := range tasks {
		b, ok := batches[task.ChannelID]
		if !ok {
			b = &channelBatch{}
			batches[task.ChannelID] = b
			progress.TotalChannels++
		}
		b.pending++
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := s.prober.Probe(gctx, task.URL, opts.Timeout)
			metrics.RecordProbe(res.IsAvailable(), string(res.Kind()))

			mu.Lock()
			defer mu.Unlock()

			b := batches[task.ChannelID]
			b.results = append(b.results, probe.TaskResult{Task: task, Result: res})
			b.pending--
			if b.pending == 0 {
				s.finalizeLocked(task.ChannelID, b, &summary, &progress, opts.OnProgress)
			}
			return nil
		})
	}

	err := g.Wait()

	// A cancelled batch may leave channels with some, but not all, checks
	// completed. Their verdict is derived from what did finish.
	mu.Lock()
	for id, b := range batches {
		if !b.applied && len(b.results) > 0 {
			s.finalizeLocked(id, b, &summary, &progress, opts.OnProgress)
		}
	}
	mu.Unlock()

	metrics.SetChannelCounts(s.store.Len(), s.store.OnlineCount())

	s.logger.Info("probe batch finished",
		"channels", summary.ChannelsProbed,
		"online", summary.Online,
		"offline", summary.Offline,
		"cancelled", err != nil,
	)

	return summary, err
}

// finalizeLocked derives and applies one channel's outcome. Caller holds the
// batch mutex.
func (s *ProbeService) finalizeLocked(channelID string, b *channelBatch, summary *BatchSummary, progress *Progress, onProgress ProgressFunc) {
	b.applied = true

	outcome, ok := probe.DeriveOutcome(b.results)
	if !ok {
		return
	}

	if err := s.store.ApplyLiveness(channelID, outcome, s.now()); err != nil {
		s.logger.Warn("failed to apply liveness", "channel_id", channelID, "error", err)
		return
	}

	summary.ChannelsProbed++
	progress.CompletedChannels++
	if outcome.Online {
		summary.Online++
		progress.Online++
	} else {
		summary.Offline++
		progress.Offline++
	}

	if onProgress != nil {
		onProgress(*progress)
	}
}

// buildTasks expands channels into probe tasks: always the primary URL, plus
// every other source when testAllSources is set. Position records each URL's
// index in the channel's source list so tie-breaks are deterministic.
func buildTasks(channels []*channel.Channel, testAllSources bool) []probe.Task {
	var tasks []probe.Task
	for _, ch := range channels {
		tasks = append(tasks, probe.Task{
			ChannelID: ch.ID(),
			URL:       ch.PrimaryURL(),
			Role:      probe.RolePrimary,
		})
		if !testAllSources {
			continue
		}
		for i, src := range ch.Sources() {
			if src.URL == ch.PrimaryURL() {
				continue
			}
			tasks = append(tasks, probe.Task{
				ChannelID: ch.ID(),
				URL:       src.URL,
				Role:      probe.RoleAlternate,
				Position:  i,
			})
		}
	}
	return tasks
}
