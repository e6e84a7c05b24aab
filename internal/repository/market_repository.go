package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
)

// CHMarketStore reads and writes market snapshots in ClickHouse.
type CHMarketStore struct {
	db *sql.DB
	// freshness bounds how old a "latest" observation may be.
	freshness time.Duration
}

func NewCHMarketStore(db *sql.DB, freshness time.Duration) *CHMarketStore {
	if freshness <= 0 {
		freshness = 24 * time.Hour
	}
	return &CHMarketStore{db: db, freshness: freshness}
}

// argMax over the same observed_at keeps every column of one symbol from the same snapshot.
const latestObservations = `
	SELECT
		symbol,
		argMax(name, observed_at),
		argMax(price, observed_at),
		argMax(change_24h, observed_at),
		argMax(volume, observed_at),
		argMax(market_cap, observed_at),
		max(observed_at)
	FROM market_observations
	WHERE observed_at >= ?
	GROUP BY symbol
	ORDER BY symbol`

func (s *CHMarketStore) LatestObservations(ctx context.Context) ([]models.MarketObservation, error) {
	rows, err := s.db.QueryContext(ctx, latestObservations, time.Now().Add(-s.freshness).UTC())
	if err != nil {
		return nil, errs.NewPersistenceError("market", "", err)
	}
	defer rows.Close()

	var out []models.MarketObservation
	for rows.Next() {
		var o models.MarketObservation
		if err := rows.Scan(&o.Symbol, &o.Name, &o.Price, &o.Change24hPercent, &o.Volume, &o.MarketCap, &o.ObservedAt); err != nil {
			return nil, errs.NewPersistenceError("market", "", fmt.Errorf("scan: %w", err))
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewPersistenceError("market", "", err)
	}
	return out, nil
}

func (s *CHMarketStore) LatestIndicator(ctx context.Context) (*models.MarketIndicator, error) {
	var ind models.MarketIndicator
	err := s.db.QueryRowContext(ctx,
		"SELECT fear_greed_index, observed_at FROM market_indicators ORDER BY observed_at DESC LIMIT 1",
	).Scan(&ind.FearGreedIndex, &ind.ObservedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewPersistenceError("market", "indicator", err)
	}
	return &ind, nil
}

func (s *CHMarketStore) VolumeHistory(ctx context.Context, symbol string, since time.Time) ([]models.VolumeSample, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT volume, observed_at FROM market_observations WHERE symbol = ? AND observed_at >= ? ORDER BY observed_at",
		symbol, since.UTC())
	if err != nil {
		return nil, errs.NewPersistenceError("market", symbol, err)
	}
	defer rows.Close()

	var out []models.VolumeSample
	for rows.Next() {
		var v models.VolumeSample
		if err := rows.Scan(&v.Volume, &v.ObservedAt); err != nil {
			return nil, errs.NewPersistenceError("market", symbol, fmt.Errorf("scan: %w", err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewPersistenceError("market", symbol, err)
	}
	return out, nil
}

// StoreObservations writes one batch through a prepared insert inside a transaction,
// which clickhouse-go sends as a single block.
func (s *CHMarketStore) StoreObservations(ctx context.Context, obs []models.MarketObservation) error {
	if len(obs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewPersistenceError("market", "", fmt.Errorf("begin: %w", err))
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO market_observations (observed_at, symbol, name, price, change_24h, volume, market_cap)")
	if err != nil {
		_ = tx.Rollback()
		return errs.NewPersistenceError("market", "", fmt.Errorf("prepare: %w", err))
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.ObservedAt.UTC(), o.Symbol, o.Name, o.Price, o.Change24hPercent, o.Volume, o.MarketCap); err != nil {
			_ = tx.Rollback()
			return errs.NewPersistenceError("market", o.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.NewPersistenceError("market", "", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *CHMarketStore) StoreIndicator(ctx context.Context, ind models.MarketIndicator) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO market_indicators (observed_at, fear_greed_index) VALUES (?, ?)",
		ind.ObservedAt.UTC(), ind.FearGreedIndex)
	if err != nil {
		return errs.NewPersistenceError("market", "indicator", err)
	}
	return nil
}
