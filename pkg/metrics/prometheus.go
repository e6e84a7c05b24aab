package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinAlert/internal/domain/models"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	cycles      *prometheus.CounterVec
	cycleTime   *prometheus.HistogramVec
	sources     *prometheus.CounterVec
	items       prometheus.Counter
	alerts      *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	lastCycle   *prometheus.GaugeVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in production
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalert_scheduler_cycles_total",
				Help: "Scheduler cycles by scheduler and result",
			},
			[]string{"scheduler", "result"},
		),
		cycleTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finalert_scheduler_cycle_seconds",
				Help:    "Duration of scheduler cycles",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"scheduler"},
		),
		sources: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalert_source_collections_total",
				Help: "Per-source collection outcomes",
			},
			[]string{"result"},
		),
		items: f.NewCounter(
			prometheus.CounterOpts{
				Name: "finalert_items_collected_total",
				Help: "Newly inserted feed items",
			},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalert_alerts_total",
				Help: "Alert candidates by type, level and outcome",
			},
			[]string{"type", "level", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finalert_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finalert_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastCycle: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finalert_scheduler_last_cycle_timestamp_seconds",
				Help: "Unix time of the last finished cycle",
			},
			[]string{"scheduler"},
		),
	}
}

func (r *Recorder) RecordCycle(scheduler, result string, seconds float64) {
	r.cycles.WithLabelValues(scheduler, result).Inc()
	r.cycleTime.WithLabelValues(scheduler).Observe(seconds)
	r.lastCycle.WithLabelValues(scheduler).Set(float64(time.Now().Unix()))
}

func (r *Recorder) RecordSourceResult(result string) {
	r.sources.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordItemsCollected(n int) {
	if n > 0 {
		r.items.Add(float64(n))
	}
}

func (r *Recorder) RecordAlert(alertType string, level models.AlertLevel, outcome string) {
	r.alerts.WithLabelValues(alertType, string(level), outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything. Used where metrics are optional.
type Nop struct{}

func (Nop) RecordCycle(string, string, float64)           {}
func (Nop) RecordSourceResult(string)                     {}
func (Nop) RecordItemsCollected(int)                      {}
func (Nop) RecordAlert(string, models.AlertLevel, string) {}
func (Nop) RecordError(string)                            {}
func (Nop) RecordLatency(string, float64)                 {}
