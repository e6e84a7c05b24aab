package models

import "time"

// CollectionStats are process-lifetime counters of the collection scheduler.
// SuccessCount/FailureCount count sources, TotalRuns/FailedRuns count cycles.
type CollectionStats struct {
	TotalRuns       uint64        `json:"total_runs"`
	FailedRuns      uint64        `json:"failed_runs"`
	SuccessCount    uint64        `json:"success_count"`
	FailureCount    uint64        `json:"failure_count"`
	ItemsCollected  uint64        `json:"items_collected"`
	LastRunAt       *time.Time    `json:"last_run_at,omitempty"`
	LastRunDuration time.Duration `json:"last_run_duration"`
	NextRunAt       *time.Time    `json:"next_run_at,omitempty"`
}

// AlertSchedulerStatus mirrors CollectionStats for the alert evaluation loop.
type AlertSchedulerStatus struct {
	IsRunning     bool       `json:"is_running"`
	InProgress    bool       `json:"in_progress"`
	TotalRuns     uint64     `json:"total_runs"`
	FailedRuns    uint64     `json:"failed_runs"`
	AlertsCreated uint64     `json:"alerts_created"`
	AlertsSkipped uint64     `json:"alerts_skipped"`
	AlertsFailed  uint64     `json:"alerts_failed"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
}

// SchedulerStatus is the combined view returned to the host.
type SchedulerStatus struct {
	IsRunning            bool                 `json:"is_running"`
	CollectionInProgress bool                 `json:"collection_in_progress"`
	Stats                CollectionStats      `json:"stats"`
	AlertScheduler       AlertSchedulerStatus `json:"alert_scheduler"`
}

// SourceOutcome is the result of one source inside a collection cycle.
type SourceOutcome struct {
	SourceID string
	Saved    int
	Err      error
}

// CycleSummary aggregates one collection cycle.
type CycleSummary struct {
	Sources   int
	Succeeded int
	Failed    int
	Items     int
	Duration  time.Duration
	// FailedSources lists the IDs of sources that failed this cycle.
	FailedSources []string
}

// DedupResult aggregates one deduplicate-and-persist pass.
type DedupResult struct {
	Created         []GeneratedAlert
	SkippedInCycle  int
	SkippedCooldown int
	Failed          int
}
