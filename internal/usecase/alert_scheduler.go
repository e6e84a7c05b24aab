package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
	"FinAlert/internal/services/alerting"
	"FinAlert/pkg/logger"
)

// AlertConfig tunes the alert evaluation loop.
type AlertConfig struct {
	Interval       time.Duration
	VolumeLookback time.Duration
	RestartDelay   time.Duration
}

// AlertScheduler periodically evaluates the rule engine over the latest market snapshot
// and hands the candidates to the deduplicator.
type AlertScheduler struct {
	market  drepo.MarketStore
	engine  *alerting.Engine
	dedup   *AlertDeduplicator
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     AlertConfig
	now     func() time.Time
	timer   *periodic

	mu         sync.Mutex
	inProgress bool
	status     models.AlertSchedulerStatus
}

func NewAlertScheduler(
	market drepo.MarketStore,
	engine *alerting.Engine,
	dedup *AlertDeduplicator,
	metrics drepo.Metrics,
	l *logger.Logger,
	cfg AlertConfig,
) *AlertScheduler {
	if cfg.VolumeLookback <= 0 {
		cfg.VolumeLookback = 7 * 24 * time.Hour
	}
	if l == nil {
		l = logger.Nop()
	}
	s := &AlertScheduler{
		market:  market,
		engine:  engine,
		dedup:   dedup,
		metrics: metrics,
		log:     l.With(logger.String("component", "alert_scheduler")),
		cfg:     cfg,
		now:     time.Now,
	}
	s.timer = newPeriodic("alerts", cfg.Interval, s.runCycle, s.log)
	return s
}

func (s *AlertScheduler) Start(ctx context.Context) { s.timer.start(ctx) }

func (s *AlertScheduler) Stop() { s.timer.stop() }

func (s *AlertScheduler) Restart(ctx context.Context) {
	s.timer.restart(ctx, s.cfg.RestartDelay)
}

func (s *AlertScheduler) IsRunning() bool { return s.timer.isRunning() }

func (s *AlertScheduler) Shutdown(ctx context.Context) error {
	s.Stop()
	return s.timer.wait(ctx)
}

func (s *AlertScheduler) runCycle(ctx context.Context) {
	if err := s.PerformEvaluation(ctx); err != nil {
		s.log.Error("alert cycle failed", logger.Error(err))
	}
}

// PerformEvaluation runs one evaluation. Concurrent calls are skipped. Only a failure to
// read the latest observations fails the cycle.
func (s *AlertScheduler) PerformEvaluation(ctx context.Context) error {
	if !s.begin() {
		s.log.Debug("alert evaluation already in progress, skipping")
		return nil
	}
	defer s.end()

	start := s.now()
	obs, err := s.market.LatestObservations(ctx)
	if err != nil {
		s.recordRun(start, nil, true)
		s.metrics.RecordError("market_store")
		s.metrics.RecordCycle("alerts", "failed", s.now().Sub(start).Seconds())
		return errs.NewPersistenceError("market", "", fmt.Errorf("latest observations: %w", err))
	}

	ind, err := s.market.LatestIndicator(ctx)
	if err != nil {
		s.metrics.RecordError("market_indicator")
		s.log.Warn("market indicator unavailable", logger.Error(err))
		ind = nil
	}

	latest := alerting.LatestPerSymbol(obs)
	history := make(map[string][]models.VolumeSample, len(latest))
	for _, o := range latest {
		at := o.ObservedAt
		if at.IsZero() {
			at = start
		}
		samples, err := s.market.VolumeHistory(ctx, o.Symbol, at.Add(-s.cfg.VolumeLookback))
		if err != nil {
			s.metrics.RecordError("volume_history")
			s.log.Warn("volume history unavailable",
				logger.String("symbol", o.Symbol),
				logger.Error(err))
			continue
		}
		history[o.Symbol] = samples
	}

	candidates := s.engine.Evaluate(alerting.Snapshot{
		Observations:  latest,
		Indicator:     ind,
		VolumeHistory: history,
		Now:           start,
	})
	res := s.dedup.Process(ctx, candidates)
	s.recordRun(start, &res, false)

	elapsed := s.now().Sub(start)
	s.metrics.RecordCycle("alerts", "ok", elapsed.Seconds())
	s.log.Info("alert cycle finished",
		logger.Int("symbols", len(latest)),
		logger.Int("candidates", len(candidates)),
		logger.Int("created", len(res.Created)),
		logger.Int("skipped_cycle", res.SkippedInCycle),
		logger.Int("skipped_cooldown", res.SkippedCooldown),
		logger.Int("failed", res.Failed),
		logger.Duration("duration", elapsed))
	return nil
}

func (s *AlertScheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	return true
}

func (s *AlertScheduler) end() {
	s.mu.Lock()
	s.inProgress = false
	s.mu.Unlock()
}

func (s *AlertScheduler) recordRun(start time.Time, res *models.DedupResult, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.TotalRuns++
	s.status.LastRunAt = &start
	if failed {
		s.status.FailedRuns++
		return
	}
	if res != nil {
		s.status.AlertsCreated += uint64(len(res.Created))
		s.status.AlertsSkipped += uint64(res.SkippedInCycle + res.SkippedCooldown)
		s.status.AlertsFailed += uint64(res.Failed)
	}
}

// Status returns a copy of the counters together with the lifecycle flags.
func (s *AlertScheduler) Status() models.AlertSchedulerStatus {
	s.mu.Lock()
	st := s.status
	st.InProgress = s.inProgress
	s.mu.Unlock()
	st.IsRunning = s.timer.isRunning()
	st.NextRunAt = s.timer.nextRunAt()
	return st
}

func (s *AlertScheduler) ResetStats() {
	s.mu.Lock()
	s.status = models.AlertSchedulerStatus{}
	s.mu.Unlock()
}
