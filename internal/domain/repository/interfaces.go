package repository

import (
	"context"
	"time"

	"FinAlert/internal/domain/models"
)

// SourceStore is the durable registry of feed sources.
type SourceStore interface {
	// ListEnabled returns enabled sources, least recently collected first.
	ListEnabled(ctx context.Context) ([]models.Source, error)
	Update(ctx context.Context, sourceID string, patch models.SourcePatch) error
}

// FeedFetcher retrieves one feed and persists its items.
type FeedFetcher interface {
	FetchAndParseFeed(ctx context.Context, src models.Source) ([]models.FeedItem, error)
	// SaveItems returns the number of newly inserted items; duplicates are not counted.
	SaveItems(ctx context.Context, items []models.FeedItem) (int, error)
}

// ItemStore persists feed items idempotently on (SourceID, ExternalID).
type ItemStore interface {
	InsertItems(ctx context.Context, items []models.FeedItem) (int, error)
}

// MarketStore is the read side of the market snapshot time-series.
type MarketStore interface {
	LatestObservations(ctx context.Context) ([]models.MarketObservation, error)
	// LatestIndicator returns nil when no indicator has been observed.
	LatestIndicator(ctx context.Context) (*models.MarketIndicator, error)
	VolumeHistory(ctx context.Context, symbol string, since time.Time) ([]models.VolumeSample, error)
}

// MarketWriter is the write side used by the snapshot ingestion consumer.
type MarketWriter interface {
	StoreObservations(ctx context.Context, obs []models.MarketObservation) error
	StoreIndicator(ctx context.Context, ind models.MarketIndicator) error
}

// AlertStore persists generated alerts.
type AlertStore interface {
	// FindRecent returns the newest alert for the pair created at or after since, or nil.
	FindRecent(ctx context.Context, symbol, alertType string, since time.Time) (*models.GeneratedAlert, error)
	Create(ctx context.Context, alert *models.GeneratedAlert) error
	ListRecent(ctx context.Context, filter AlertFilter) ([]models.GeneratedAlert, error)
}

// AlertFilter narrows ListRecent.
type AlertFilter struct {
	Symbol string
	Level  models.AlertLevel
	Limit  int
}

// AlertNotifier is told about every alert that was persisted.
type AlertNotifier interface {
	Notify(ctx context.Context, alert models.GeneratedAlert) error
}

// Metrics records pipeline telemetry.
type Metrics interface {
	RecordCycle(scheduler, result string, seconds float64)
	RecordSourceResult(result string)
	RecordItemsCollected(n int)
	RecordAlert(alertType string, level models.AlertLevel, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
