package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
)

// MarketIngestHandler consumes market snapshot messages and writes them to the market store.
type MarketIngestHandler struct {
	topic   string
	store   drepo.MarketWriter
	metrics drepo.Metrics
}

func NewMarketIngestHandler(topic string, store drepo.MarketWriter, metrics drepo.Metrics) *MarketIngestHandler {
	return &MarketIngestHandler{topic: topic, store: store, metrics: metrics}
}

func (h *MarketIngestHandler) Topic() string { return h.topic }

type snapshotMessage struct {
	T            int64                `json:"t"`
	Observations []observationMessage `json:"observations"`
	FearGreed    *float64             `json:"fear_greed_index"`
}

type observationMessage struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h_percent"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"market_cap"`
	T         int64   `json:"t"`
}

// incoming message schema: {t, observations: [{symbol, name, price, change_24h_percent, volume, market_cap, t}], fear_greed_index}
func (h *MarketIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m snapshotMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot: %w", err)
	}

	at := unixTime(m.T)
	if at.IsZero() {
		at = time.Now().UTC()
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(at).Seconds())

	obs := make([]models.MarketObservation, 0, len(m.Observations))
	for _, o := range m.Observations {
		sym := strings.ToUpper(strings.TrimSpace(o.Symbol))
		if sym == "" || o.Price <= 0 {
			continue
		}
		observed := unixTime(o.T)
		if observed.IsZero() {
			observed = at
		}
		obs = append(obs, models.MarketObservation{
			Symbol:           sym,
			Name:             o.Name,
			Price:            o.Price,
			Change24hPercent: o.Change24h,
			Volume:           o.Volume,
			MarketCap:        o.MarketCap,
			ObservedAt:       observed,
		})
	}

	start := time.Now()
	if len(obs) > 0 {
		if err := h.store.StoreObservations(ctx, obs); err != nil {
			h.metrics.RecordError("consumer_store")
			return fmt.Errorf("store observations: %w", err)
		}
	}
	if m.FearGreed != nil {
		if err := h.store.StoreIndicator(ctx, models.MarketIndicator{FearGreedIndex: *m.FearGreed, ObservedAt: at}); err != nil {
			h.metrics.RecordError("consumer_store")
			return fmt.Errorf("store indicator: %w", err)
		}
	}
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	return nil
}

// unixTime accepts seconds or milliseconds.
func unixTime(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	if t > 1e11 {
		return time.UnixMilli(t).UTC()
	}
	return time.Unix(t, 0).UTC()
}
