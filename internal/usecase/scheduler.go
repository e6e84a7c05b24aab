package usecase

import (
	"context"
	"errors"
	"time"

	"FinAlert/internal/domain/models"
	"FinAlert/pkg/logger"
)

// Scheduler owns the collection and alert loops and drives them in lockstep.
type Scheduler struct {
	collection   *CollectionScheduler
	alerts       *AlertScheduler
	log          *logger.Logger
	restartDelay time.Duration
}

func NewScheduler(collection *CollectionScheduler, alerts *AlertScheduler, l *logger.Logger, restartDelay time.Duration) *Scheduler {
	if l == nil {
		l = logger.Nop()
	}
	return &Scheduler{collection: collection, alerts: alerts, log: l, restartDelay: restartDelay}
}

// Start starts both loops. Starting a running scheduler is a logged no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.collection.IsRunning() {
		s.log.Info("scheduler already running")
		return
	}
	s.collection.Start(ctx)
	s.alerts.Start(ctx)
}

// Stop stops both loops. In-flight cycles are not cancelled.
func (s *Scheduler) Stop() {
	s.collection.Stop()
	s.alerts.Stop()
}

// Restart stops both loops, waits the restart delay and starts them again. The delay is
// not cut short by ctx, so both loops are always running when Restart returns.
func (s *Scheduler) Restart(ctx context.Context) {
	s.Stop()
	_ = sleepCtx(context.WithoutCancel(ctx), s.restartDelay)
	s.Start(ctx)
	s.log.Info("scheduler restarted")
}

func (s *Scheduler) PerformCollection(ctx context.Context) error {
	return s.collection.PerformCollection(ctx)
}

func (s *Scheduler) PerformEvaluation(ctx context.Context) error {
	return s.alerts.PerformEvaluation(ctx)
}

// Trigger submits a collection in the background and returns immediately.
func (s *Scheduler) Trigger() {
	s.collection.Trigger()
}

func (s *Scheduler) GetStatus() models.SchedulerStatus {
	return models.SchedulerStatus{
		IsRunning:            s.collection.IsRunning(),
		CollectionInProgress: s.collection.InProgress(),
		Stats:                s.collection.Stats(),
		AlertScheduler:       s.alerts.Status(),
	}
}

func (s *Scheduler) ResetStats() {
	s.collection.ResetStats()
	s.alerts.ResetStats()
	s.log.Info("scheduler stats reset")
}

// Shutdown stops both loops and waits for in-flight cycles to finish or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	return errors.Join(s.collection.Shutdown(ctx), s.alerts.Shutdown(ctx))
}
