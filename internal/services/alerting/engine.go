package alerting

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"FinAlert/internal/domain/models"
)

const timeframe24h = "24h"

// Snapshot is everything one evaluation cycle looks at.
type Snapshot struct {
	Observations []models.MarketObservation
	// Indicator is optional.
	Indicator *models.MarketIndicator
	// VolumeHistory is keyed by symbol. A missing key skips the volume rule for that symbol.
	VolumeHistory map[string][]models.VolumeSample
	Now           time.Time
}

// Engine turns a market snapshot into prioritized alert candidates. It has no side effects.
type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Evaluate runs every rule against the newest observation of each symbol and the
// market indicator. At most one alert is returned per (symbol, alert type), ordered
// high > medium > low with ties in evaluation order.
func (e *Engine) Evaluate(s Snapshot) []models.GeneratedAlert {
	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}

	var out []models.GeneratedAlert
	seen := make(map[string]struct{})
	emit := func(a *models.GeneratedAlert) {
		if a == nil {
			return
		}
		if _, dup := seen[a.DedupKey()]; dup {
			return
		}
		seen[a.DedupKey()] = struct{}{}
		a.Timeframe = timeframe24h
		a.CreatedAt = now
		out = append(out, *a)
	}

	for _, obs := range LatestPerSymbol(s.Observations) {
		emit(e.priceChange(obs))
		emit(e.priceLevel(obs))
		if hist, ok := s.VolumeHistory[obs.Symbol]; ok {
			emit(e.volumeSpike(obs, hist, now))
		}
	}
	if s.Indicator != nil {
		emit(e.sentiment(*s.Indicator))
	}

	SortByLevel(out)
	return out
}

// LatestPerSymbol keeps one observation per symbol: the one with the latest ObservedAt,
// the earliest in input order on ties. Symbols keep their first-appearance order.
func LatestPerSymbol(obs []models.MarketObservation) []models.MarketObservation {
	idx := make(map[string]int, len(obs))
	out := make([]models.MarketObservation, 0, len(obs))
	for _, o := range obs {
		if o.Symbol == "" {
			continue
		}
		i, ok := idx[o.Symbol]
		if !ok {
			idx[o.Symbol] = len(out)
			out = append(out, o)
			continue
		}
		if o.ObservedAt.After(out[i].ObservedAt) {
			out[i] = o
		}
	}
	return out
}

// SortByLevel stable-sorts alerts high > medium > low.
func SortByLevel(alerts []models.GeneratedAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Level.Rank() > alerts[j].Level.Rank()
	})
}

func (e *Engine) priceChange(obs models.MarketObservation) *models.GeneratedAlert {
	change := obs.Change24hPercent
	abs := math.Abs(change)

	var level models.AlertLevel
	switch {
	case abs >= e.rules.PriceChangeHigh:
		level = models.LevelHigh
	case abs >= e.rules.PriceChangeMedium:
		level = models.LevelMedium
	case abs >= e.rules.PriceChangeLow:
		level = models.LevelLow
	default:
		return nil
	}

	direction := "up"
	if change < 0 {
		direction = "down"
	}
	return &models.GeneratedAlert{
		Symbol:        obs.Symbol,
		AlertType:     models.AlertPriceChange,
		Level:         level,
		Title:         fmt.Sprintf("%s %s %.2f%% in 24h", obs.Symbol, direction, abs),
		Description:   fmt.Sprintf("%s moved %+.2f%% over the last 24 hours and trades at %s.", displayName(obs), change, formatPrice(obs.Price)),
		ChangePercent: ptr(change),
		Volume:        obs.Volume,
		Details: map[string]any{
			"direction":  direction,
			"price":      obs.Price,
			"market_cap": obs.MarketCap,
		},
	}
}

func (e *Engine) priceLevel(obs models.MarketObservation) *models.GeneratedAlert {
	levels, ok := e.rules.PriceLevels[strings.ToUpper(obs.Symbol)]
	if !ok || obs.Change24hPercent <= e.rules.LevelMinChange {
		return nil
	}

	for _, level := range levels {
		distance := math.Abs(obs.Price - level)
		if distance >= e.rules.LevelProximity*level {
			continue
		}
		return &models.GeneratedAlert{
			Symbol:        obs.Symbol,
			AlertType:     models.AlertPriceLevel,
			Level:         models.LevelMedium,
			Title:         fmt.Sprintf("%s approaching %s", obs.Symbol, formatPrice(level)),
			Description:   fmt.Sprintf("%s trades at %s, within %.2f%% of the %s level after a %+.2f%% day.", displayName(obs), formatPrice(obs.Price), distance/level*100, formatPrice(level), obs.Change24hPercent),
			ChangePercent: ptr(obs.Change24hPercent),
			Volume:        obs.Volume,
			Details: map[string]any{
				"level":            level,
				"price":            obs.Price,
				"distance_percent": distance / level * 100,
			},
		}
	}
	return nil
}

func (e *Engine) volumeSpike(obs models.MarketObservation, hist []models.VolumeSample, now time.Time) *models.GeneratedAlert {
	at := obs.ObservedAt
	if at.IsZero() {
		at = now
	}
	since := at.Add(-e.rules.VolumeLookback)

	var (
		sum float64
		n   int
	)
	for _, v := range hist {
		// the current observation must not inflate its own baseline
		if !v.ObservedAt.Before(at) || v.ObservedAt.Before(since) {
			continue
		}
		sum += v.Volume
		n++
	}
	if n < e.rules.VolumeMinSamples || sum <= 0 {
		return nil
	}

	avg := sum / float64(n)
	ratio := obs.Volume / avg

	var level models.AlertLevel
	switch {
	case ratio >= e.rules.VolumeHigh:
		level = models.LevelHigh
	case ratio >= e.rules.VolumeMedium:
		level = models.LevelMedium
	default:
		return nil
	}

	return &models.GeneratedAlert{
		Symbol:        obs.Symbol,
		AlertType:     models.AlertVolumeSpike,
		Level:         level,
		Title:         fmt.Sprintf("%s volume %.1fx above average", obs.Symbol, ratio),
		Description:   fmt.Sprintf("%s traded %.0f against a 7-day average of %.0f.", displayName(obs), obs.Volume, avg),
		ChangePercent: ptr(obs.Change24hPercent),
		Volume:        obs.Volume,
		Details: map[string]any{
			"ratio":          ratio,
			"average_volume": avg,
			"samples":        n,
		},
	}
}

func (e *Engine) sentiment(ind models.MarketIndicator) *models.GeneratedAlert {
	var mood string
	switch {
	case ind.FearGreedIndex >= e.rules.GreedThreshold:
		mood = "Extreme Greed"
	case ind.FearGreedIndex <= e.rules.FearThreshold:
		mood = "Extreme Fear"
	default:
		return nil
	}

	return &models.GeneratedAlert{
		Symbol:      models.MarketSymbol,
		AlertType:   models.AlertMarketSentiment,
		Level:       models.LevelMedium,
		Title:       fmt.Sprintf("Market sentiment: %s", mood),
		Description: fmt.Sprintf("Fear & Greed index is at %.0f (%s).", ind.FearGreedIndex, strings.ToLower(mood)),
		Details: map[string]any{
			"fear_greed_index": ind.FearGreedIndex,
			"sentiment":        strings.ToLower(strings.ReplaceAll(mood, " ", "_")),
		},
	}
}

func displayName(obs models.MarketObservation) string {
	if obs.Name == "" {
		return obs.Symbol
	}
	return fmt.Sprintf("%s (%s)", obs.Name, obs.Symbol)
}

func formatPrice(p float64) string {
	if p >= 1 {
		return fmt.Sprintf("$%.2f", p)
	}
	return fmt.Sprintf("$%.6f", p)
}

func ptr(f float64) *float64 { return &f }
