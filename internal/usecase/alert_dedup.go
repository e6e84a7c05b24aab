package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
	"FinAlert/pkg/logger"
)

// DefaultAlertCooldown is the minimum distance between two stored alerts of one pair.
const DefaultAlertCooldown = 4 * time.Hour

// AlertDeduplicator drops candidates that repeat a pair within the cycle or within the
// cooldown window and persists the rest.
type AlertDeduplicator struct {
	store     drepo.AlertStore
	notifiers []drepo.AlertNotifier
	metrics   drepo.Metrics
	log       *logger.Logger
	cooldown  time.Duration
	now       func() time.Time
	newID     func() string
}

func NewAlertDeduplicator(
	store drepo.AlertStore,
	metrics drepo.Metrics,
	l *logger.Logger,
	cooldown time.Duration,
	notifiers ...drepo.AlertNotifier,
) *AlertDeduplicator {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	if l == nil {
		l = logger.Nop()
	}
	return &AlertDeduplicator{
		store:     store,
		notifiers: notifiers,
		metrics:   metrics,
		log:       l.With(logger.String("component", "alert_dedup")),
		cooldown:  cooldown,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Process runs both dedup stages over candidates in order. A failed lookup or write
// only affects its own candidate.
func (d *AlertDeduplicator) Process(ctx context.Context, candidates []models.GeneratedAlert) models.DedupResult {
	var res models.DedupResult
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		key := c.DedupKey()
		if _, dup := seen[key]; dup {
			res.SkippedInCycle++
			d.metrics.RecordAlert(c.AlertType, c.Level, "skipped_cycle")
			continue
		}
		seen[key] = struct{}{}

		now := d.now()
		recent, err := d.store.FindRecent(ctx, c.Symbol, c.AlertType, now.Add(-d.cooldown))
		if err != nil {
			res.Failed++
			d.metrics.RecordAlert(c.AlertType, c.Level, "failed")
			d.log.Warn("alert history lookup failed",
				logger.String("symbol", c.Symbol),
				logger.String("alert_type", c.AlertType),
				logger.Error(err))
			continue
		}
		if recent != nil {
			res.SkippedCooldown++
			d.metrics.RecordAlert(c.AlertType, c.Level, "skipped_cooldown")
			d.log.Debug("alert in cooldown",
				logger.String("symbol", c.Symbol),
				logger.String("alert_type", c.AlertType),
				logger.Time("last_created_at", recent.CreatedAt))
			continue
		}

		a := c
		a.ID = d.newID()
		a.IsActive = true
		a.Dismissed = false
		a.CreatedAt = now
		if err := d.store.Create(ctx, &a); err != nil {
			res.Failed++
			d.metrics.RecordAlert(c.AlertType, c.Level, "failed")
			d.log.Error("alert persist failed",
				logger.String("symbol", c.Symbol),
				logger.String("alert_type", c.AlertType),
				logger.Error(err))
			continue
		}

		res.Created = append(res.Created, a)
		d.metrics.RecordAlert(a.AlertType, a.Level, "created")
		d.notify(ctx, a)
	}
	return res
}

func (d *AlertDeduplicator) notify(ctx context.Context, a models.GeneratedAlert) {
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			d.metrics.RecordError("alert_notify")
			d.log.Warn("alert notification failed",
				logger.String("alert_id", a.ID),
				logger.Error(err))
		}
	}
}
