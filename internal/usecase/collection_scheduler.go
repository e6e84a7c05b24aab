package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
	"FinAlert/pkg/logger"
	"FinAlert/pkg/util"
)

// MaxConcurrentCollections is the hard cap on sources fetched at the same time.
const MaxConcurrentCollections = 3

const maxLastErrorLen = 500

// CollectionConfig tunes the collection loop.
type CollectionConfig struct {
	Interval      time.Duration
	MaxConcurrent int
	BatchDelay    time.Duration
	RestartDelay  time.Duration
}

// CollectionScheduler periodically fans enabled sources out to the feed fetcher in
// bounded batches and records per-source health.
type CollectionScheduler struct {
	sources drepo.SourceStore
	fetcher drepo.FeedFetcher
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     CollectionConfig
	now     func() time.Time
	timer   *periodic

	mu         sync.Mutex
	inProgress bool
	stats      models.CollectionStats

	bg sync.WaitGroup
}

func NewCollectionScheduler(
	sources drepo.SourceStore,
	fetcher drepo.FeedFetcher,
	metrics drepo.Metrics,
	l *logger.Logger,
	cfg CollectionConfig,
) *CollectionScheduler {
	if cfg.MaxConcurrent <= 0 || cfg.MaxConcurrent > MaxConcurrentCollections {
		cfg.MaxConcurrent = MaxConcurrentCollections
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if l == nil {
		l = logger.Nop()
	}
	s := &CollectionScheduler{
		sources: sources,
		fetcher: fetcher,
		metrics: metrics,
		log:     l.With(logger.String("component", "collection_scheduler")),
		cfg:     cfg,
		now:     time.Now,
	}
	s.timer = newPeriodic("collection", cfg.Interval, s.runCycle, s.log)
	return s
}

// Start runs one collection immediately and then every interval. It is a no-op when
// already running.
func (s *CollectionScheduler) Start(ctx context.Context) {
	s.timer.start(ctx)
}

// Stop prevents future cycles. A cycle in flight finishes and persists its results.
func (s *CollectionScheduler) Stop() {
	s.timer.stop()
}

func (s *CollectionScheduler) Restart(ctx context.Context) {
	s.timer.restart(ctx, s.cfg.RestartDelay)
}

func (s *CollectionScheduler) IsRunning() bool { return s.timer.isRunning() }

// Trigger submits a collection in the background. If a cycle is already in flight the
// submission is dropped by the in-progress guard.
func (s *CollectionScheduler) Trigger() {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.runCycle(context.Background())
	}()
}

// Shutdown stops the timer and waits for the loop and background submissions to return.
func (s *CollectionScheduler) Shutdown(ctx context.Context) error {
	s.Stop()
	if err := s.timer.wait(ctx); err != nil {
		return err
	}
	return waitGroupCtx(ctx, &s.bg)
}

func (s *CollectionScheduler) runCycle(ctx context.Context) {
	if err := s.PerformCollection(ctx); err != nil {
		s.log.Error("collection cycle failed", logger.Error(err))
	}
}

// PerformCollection runs one cycle over every enabled source. A call made while another
// cycle is in flight returns nil without doing anything. Only a failure to list sources
// is returned; per-source failures are recorded on the source and in the stats.
func (s *CollectionScheduler) PerformCollection(ctx context.Context) error {
	if !s.begin() {
		s.log.Debug("collection already in progress, skipping")
		return nil
	}
	defer s.end()

	start := s.now()
	sources, err := s.sources.ListEnabled(ctx)
	if err != nil {
		s.recordFailedRun(start)
		s.metrics.RecordError("source_store")
		return errs.NewPersistenceError("source", "", fmt.Errorf("list enabled: %w", err))
	}
	if len(sources) == 0 {
		cerr := &errs.ConfigurationError{Reason: "collection skipped", Err: errs.ErrNoEnabledSources}
		s.log.Info("no enabled sources", logger.String("reason", cerr.Error()))
		s.recordRun(start, models.CycleSummary{})
		s.metrics.RecordCycle("collection", "empty", s.now().Sub(start).Seconds())
		return nil
	}

	models.SortByStaleness(sources)
	summary := s.collectAll(ctx, sources)
	summary.Duration = s.now().Sub(start)
	s.recordRun(start, summary)

	s.metrics.RecordCycle("collection", "ok", summary.Duration.Seconds())
	s.log.Info("collection cycle finished",
		logger.Int("sources", summary.Sources),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("failed", summary.Failed),
		logger.Strings("failed_sources", summary.FailedSources),
		logger.Int("items", summary.Items),
		logger.Duration("duration", summary.Duration))
	return nil
}

func (s *CollectionScheduler) collectAll(ctx context.Context, sources []models.Source) models.CycleSummary {
	summary := models.CycleSummary{Sources: len(sources)}
	size := s.cfg.MaxConcurrent

	for i := 0; i < len(sources); i += size {
		if i > 0 {
			if err := sleepCtx(ctx, s.cfg.BatchDelay); err != nil {
				s.log.Warn("collection interrupted between batches",
					logger.Int("remaining", len(sources)-i),
					logger.Error(err))
				summary.Sources = i
				break
			}
		}

		end := min(i+size, len(sources))
		for _, out := range s.collectBatch(ctx, sources[i:end]) {
			summary.Items += out.Saved
			if out.Err != nil {
				summary.Failed++
				summary.FailedSources = append(summary.FailedSources, out.SourceID)
				continue
			}
			summary.Succeeded++
		}
	}
	return summary
}

// collectBatch processes one batch concurrently and returns when every source settled.
func (s *CollectionScheduler) collectBatch(ctx context.Context, batch []models.Source) []models.SourceOutcome {
	outcomes := make([]models.SourceOutcome, len(batch))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for i := range batch {
		g.Go(func() error {
			outcomes[i] = s.collectSource(ctx, batch[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *CollectionScheduler) collectSource(ctx context.Context, src models.Source) (out models.SourceOutcome) {
	out.SourceID = src.ID
	fetched, finished := false, false

	// finish writes the outcome back at most once, even when the write itself panics.
	finish := func() {
		finished = true
		s.finishSource(ctx, src, out, fetched)
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		out.Err = fmt.Errorf("panic while collecting: %v", r)
		s.log.Error("source collection panicked",
			logger.String("source_id", src.ID),
			logger.Any("panic", r))
		if finished {
			return
		}
		func() {
			defer func() { _ = recover() }()
			finish()
		}()
	}()

	items, err := s.fetcher.FetchAndParseFeed(ctx, src)
	if err != nil {
		out.Err = err
		finish()
		return out
	}
	fetched = true

	saved, err := s.fetcher.SaveItems(ctx, items)
	out.Saved = max(saved, 0)
	out.Err = err
	finish()
	return out
}

// finishSource writes the outcome back to the source. lastCollectedAt only moves when
// the feed was actually fetched.
func (s *CollectionScheduler) finishSource(ctx context.Context, src models.Source, out models.SourceOutcome, fetched bool) {
	patch := models.SourcePatch{CollectedDelta: uint64(out.Saved)}
	if fetched {
		now := s.now()
		patch.LastCollectedAt = &now
	}

	if out.Err != nil {
		status := models.SourceError
		msg := util.Truncate(out.Err.Error(), maxLastErrorLen)
		patch.Status = &status
		patch.LastError = &msg

		s.metrics.RecordSourceResult("failed")
		s.log.Warn("source collection failed",
			logger.String("source_id", src.ID),
			logger.String("url", src.URL),
			logger.Bool("fetched", fetched),
			logger.Int("saved", out.Saved),
			logger.Error(out.Err))
	} else {
		status := models.SourceActive
		patch.Status = &status
		patch.ClearError = true

		s.metrics.RecordSourceResult("success")
		s.log.Debug("source collected",
			logger.String("source_id", src.ID),
			logger.Int("saved", out.Saved))
	}
	s.metrics.RecordItemsCollected(out.Saved)

	if err := s.sources.Update(ctx, src.ID, patch); err != nil {
		s.metrics.RecordError("source_update")
		s.log.Error("source update failed",
			logger.String("source_id", src.ID),
			logger.Error(err))
	}
}

func (s *CollectionScheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	return true
}

func (s *CollectionScheduler) end() {
	s.mu.Lock()
	s.inProgress = false
	s.mu.Unlock()
}

func (s *CollectionScheduler) recordRun(start time.Time, sum models.CycleSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalRuns++
	s.stats.SuccessCount += uint64(sum.Succeeded)
	s.stats.FailureCount += uint64(sum.Failed)
	s.stats.ItemsCollected += uint64(sum.Items)
	s.stats.LastRunAt = &start
	s.stats.LastRunDuration = sum.Duration
}

func (s *CollectionScheduler) recordFailedRun(start time.Time) {
	s.mu.Lock()
	s.stats.TotalRuns++
	s.stats.FailedRuns++
	s.stats.LastRunAt = &start
	s.stats.LastRunDuration = s.now().Sub(start)
	s.mu.Unlock()

	s.metrics.RecordCycle("collection", "failed", s.now().Sub(start).Seconds())
}

// InProgress reports whether a cycle is running right now.
func (s *CollectionScheduler) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}

// Stats returns a copy of the counters.
func (s *CollectionScheduler) Stats() models.CollectionStats {
	s.mu.Lock()
	st := s.stats
	s.mu.Unlock()
	st.NextRunAt = s.timer.nextRunAt()
	return st
}

func (s *CollectionScheduler) ResetStats() {
	s.mu.Lock()
	s.stats = models.CollectionStats{}
	s.mu.Unlock()
}
