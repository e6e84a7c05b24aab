package models

import "time"

// AlertLevel is the severity tier of an alert.
type AlertLevel string

const (
	LevelHigh   AlertLevel = "high"
	LevelMedium AlertLevel = "medium"
	LevelLow    AlertLevel = "low"
)

// Rank orders tiers: high > medium > low. Unknown levels rank lowest.
func (l AlertLevel) Rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

// Alert types produced by the rule engine.
const (
	AlertPriceChange     = "price_change"
	AlertPriceLevel      = "price_level"
	AlertVolumeSpike     = "volume_spike"
	AlertMarketSentiment = "market_sentiment"
)

// MarketSymbol is the pseudo symbol used by aggregate (non per-asset) alerts.
const MarketSymbol = "market"

// GeneratedAlert is a rule firing. Only alerts surviving deduplication are persisted.
type GeneratedAlert struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	AlertType     string         `json:"alert_type"`
	Level         AlertLevel     `json:"level"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	ChangePercent *float64       `json:"change_percent,omitempty"`
	Timeframe     string         `json:"timeframe"`
	Volume        float64        `json:"volume"`
	Details       map[string]any `json:"details,omitempty"`
	IsActive      bool           `json:"is_active"`
	Dismissed     bool           `json:"dismissed"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DedupKey identifies the (symbol, alertType) pair the cooldown applies to.
func (a GeneratedAlert) DedupKey() string {
	return a.Symbol + "|" + a.AlertType
}
