package models

import "time"

// MarketObservation is one price/volume snapshot of a symbol.
type MarketObservation struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Price            float64   `json:"price"`
	Change24hPercent float64   `json:"change_24h_percent"`
	Volume           float64   `json:"volume"`
	MarketCap        float64   `json:"market_cap"`
	ObservedAt       time.Time `json:"observed_at"`
}

// MarketIndicator is the aggregate market sentiment for a cycle.
type MarketIndicator struct {
	FearGreedIndex float64   `json:"fear_greed_index"`
	ObservedAt     time.Time `json:"observed_at"`
}

// VolumeSample is a historical traded volume point for a symbol.
type VolumeSample struct {
	Volume     float64
	ObservedAt time.Time
}
