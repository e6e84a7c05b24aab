package repository

// PostgresSchema creates the relational tables. Every statement is idempotent.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS feed_sources (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL DEFAULT '',
		url               TEXT NOT NULL,
		enabled           BOOLEAN NOT NULL DEFAULT TRUE,
		last_collected_at TIMESTAMPTZ NULL,
		total_collected   BIGINT NOT NULL DEFAULT 0,
		status            TEXT NOT NULL DEFAULT 'active',
		last_error        TEXT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS feed_sources_enabled_last_collected_idx
		ON feed_sources (last_collected_at ASC NULLS FIRST) WHERE enabled`,
	`CREATE TABLE IF NOT EXISTS feed_items (
		id           BIGSERIAL PRIMARY KEY,
		source_id    TEXT NOT NULL REFERENCES feed_sources (id) ON DELETE CASCADE,
		external_id  TEXT NOT NULL,
		title        TEXT NOT NULL,
		link         TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ NOT NULL,
		content      TEXT NOT NULL DEFAULT '',
		coins        TEXT[] NOT NULL DEFAULT '{}',
		urgency      TEXT NOT NULL DEFAULT 'low',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source_id, external_id)
	)`,
	`CREATE TABLE IF NOT EXISTS generated_alerts (
		id             UUID PRIMARY KEY,
		symbol         TEXT NOT NULL,
		alert_type     TEXT NOT NULL,
		level          TEXT NOT NULL,
		title          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		change_percent DOUBLE PRECISION NULL,
		timeframe      TEXT NOT NULL DEFAULT '24h',
		volume         DOUBLE PRECISION NOT NULL DEFAULT 0,
		details        JSONB NOT NULL DEFAULT '{}',
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		dismissed      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS generated_alerts_pair_created_idx
		ON generated_alerts (symbol, alert_type, created_at DESC)`,
}

// ClickHouseSchema creates the market snapshot tables.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS market_observations (
		observed_at DateTime64(3, 'UTC'),
		symbol      LowCardinality(String),
		name        String,
		price       Float64,
		change_24h  Float64,
		volume      Float64,
		market_cap  Float64
	) ENGINE = ReplacingMergeTree
	PARTITION BY toYYYYMM(observed_at)
	ORDER BY (symbol, observed_at)
	TTL toDateTime(observed_at) + INTERVAL 90 DAY`,
	`CREATE TABLE IF NOT EXISTS market_indicators (
		observed_at      DateTime64(3, 'UTC'),
		fear_greed_index Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY observed_at
	TTL toDateTime(observed_at) + INTERVAL 90 DAY`,
}
