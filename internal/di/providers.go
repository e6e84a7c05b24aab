package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
	"FinAlert/internal/handler/api"
	"FinAlert/internal/handler/ws"
	"FinAlert/internal/repository"
	"FinAlert/internal/service/feed"
	"FinAlert/internal/service/ratelimit"
	"FinAlert/internal/services/alerting"
	"FinAlert/internal/usecase"
	"FinAlert/pkg/cache"
	pkgch "FinAlert/pkg/clickhouse"
	"FinAlert/pkg/config"
	xhttp "FinAlert/pkg/http"
	pkgkafka "FinAlert/pkg/kafka"
	applogger "FinAlert/pkg/logger"
	"FinAlert/pkg/metrics"
	"FinAlert/pkg/postgres"
	"FinAlert/pkg/server"
)

const initTimeout = 15 * time.Second

// ProvideRegistry creates the Prometheus registry shared by every component.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates the pipeline metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) drepo.Metrics {
	return metrics.New(reg)
}

// ProvideLogger builds the application logger. Repeated errors are folded and shipped
// to Kafka when the collector is enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvidePostgresClient connects to Postgres and applies the source/item/alert schema.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := postgres.NewClient(ctx,
		postgres.WithDSN(cfg.Postgres.DSN),
		postgres.WithPoolSize(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
		postgres.WithConnLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithConnectTimeout(cfg.Postgres.ConnectTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres client: %w", err)
	}
	if err := postgres.InitSchema(ctx, client.Pool(), repository.PostgresSchema); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, client.Close, nil
}

// ProvideClickHouseClient connects to ClickHouse and applies the market schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	ch := cfg.ClickHouse
	client, err := pkgch.Open(ctx, pkgch.Settings{
		Host:         ch.Host,
		Port:         ch.Port,
		Database:     ch.Database,
		User:         ch.User,
		Password:     ch.Password,
		HTTP:         ch.UseHTTP,
		AsyncInsert:  ch.AsyncInsert,
		WaitForAsync: ch.WaitForAsync,
		DialTimeout:  ch.DialTimeout,
		ReadTimeout:  ch.ReadTimeout,
		MaxExecTime:  ch.MaxExecutionTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, repository.ClickHouseSchema); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCache returns an in-process cache, layered over Redis when Redis is enabled.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(1024), cache.WithMemoryCleanup(time.Minute))
	if !cfg.Redis.Enabled {
		return mem, func() { _ = mem.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("finalert"),
	)
	if err != nil {
		_ = mem.Close()
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	layered := cache.NewLayeredCache(mem, rc, cache.WithL1TTL(30*time.Second))
	return layered, func() { _ = layered.Close() }, nil
}

// ProvideKafkaProducer creates the producer used for alert fan-out and log shipping.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerMetrics(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideKafkaConsumer creates the market snapshot consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.Consumer.Disabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSourceStore creates the source registry and upserts the configured sources.
func ProvideSourceStore(pg *postgres.Client, cfg *config.Config) (*repository.PGSourceStore, error) {
	store := repository.NewPGSourceStore(pg.Pool())

	seeds := make([]models.Source, 0, len(cfg.Feed.Sources))
	for _, s := range cfg.Feed.Sources {
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		seeds = append(seeds, models.Source{ID: s.ID, Name: name, URL: s.URL, Enabled: enabled})
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.EnsureSources(ctx, seeds); err != nil {
		return nil, fmt.Errorf("seed sources: %w", err)
	}
	return store, nil
}

func ProvideItemStore(pg *postgres.Client) *repository.PGItemStore {
	return repository.NewPGItemStore(pg.Pool())
}

func ProvideAlertStore(pg *postgres.Client) *repository.PGAlertStore {
	return repository.NewPGAlertStore(pg.Pool())
}

func ProvideCHMarketStore(ch *pkgch.Client) *repository.CHMarketStore {
	return repository.NewCHMarketStore(ch.DB(), 24*time.Hour)
}

// ProvideMarketStore puts the volume history cache in front of ClickHouse.
func ProvideMarketStore(ch *repository.CHMarketStore, c cache.Service, cfg *config.Config, l *applogger.Logger) drepo.MarketStore {
	return repository.NewCachedMarketStore(ch, c, cfg.Redis.VolumeTTL, l)
}

// ProvideFeedFetcher creates the feed fetcher with a per-host rate limit.
func ProvideFeedFetcher(items *repository.PGItemStore, cfg *config.Config, l *applogger.Logger) *feed.Fetcher {
	return feed.NewFetcher(items, l.With(applogger.String("component", "feed_fetcher")),
		feed.WithConfig(feed.Config{
			UserAgent:   cfg.Feed.UserAgent,
			Timeout:     cfg.Feed.Timeout,
			MaxItems:    cfg.Feed.MaxItems,
			MaxContent:  cfg.Feed.MaxContent,
			MaxBodySize: cfg.Feed.MaxBodySize,
		}),
		feed.WithLimiter(ratelimit.New(cfg.Feed.HostRPS, cfg.Feed.HostBurst)),
	)
}

func ProvideAlertHub(l *applogger.Logger) (*ws.AlertHub, func()) {
	hub := ws.NewAlertHub(l)
	return hub, hub.Close
}

// ProvideAlertNotifiers fans persisted alerts out to Kafka and WebSocket subscribers.
func ProvideAlertNotifiers(producer *pkgkafka.Producer, hub *ws.AlertHub, cfg *config.Config) []drepo.AlertNotifier {
	notifiers := []drepo.AlertNotifier{hub}
	if cfg.Alerts.NotifyTopic != "" {
		notifiers = append(notifiers, repository.NewKafkaAlertNotifier(producer, cfg.Alerts.NotifyTopic))
	}
	return notifiers
}

// ProvideEngine builds rule thresholds from configuration.
func ProvideEngine(cfg *config.Config) *alerting.Engine {
	r := cfg.Alerts.Rules
	rules := alerting.DefaultRules()
	rules.PriceChangeHigh = r.PriceChangeHigh
	rules.PriceChangeMedium = r.PriceChangeMedium
	rules.PriceChangeLow = r.PriceChangeLow
	rules.LevelProximity = r.LevelProximity
	rules.LevelMinChange = r.LevelMinChange
	if len(r.PriceLevels) > 0 {
		rules.PriceLevels = r.PriceLevels
	}
	rules.VolumeHigh = r.VolumeHigh
	rules.VolumeMedium = r.VolumeMedium
	rules.VolumeMinSamples = r.VolumeMinSamples
	rules.VolumeLookback = cfg.Alerts.VolumeLookback
	rules.GreedThreshold = float64(r.GreedThreshold)
	rules.FearThreshold = float64(r.FearThreshold)
	return alerting.NewEngine(rules)
}

func ProvideCollectionScheduler(
	sources *repository.PGSourceStore,
	fetcher *feed.Fetcher,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.CollectionScheduler {
	return usecase.NewCollectionScheduler(sources, fetcher, m, l, usecase.CollectionConfig{
		Interval:      cfg.Scheduler.CollectionInterval,
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		BatchDelay:    cfg.Scheduler.BatchDelay,
		RestartDelay:  cfg.Scheduler.RestartDelay,
	})
}

func ProvideAlertDeduplicator(
	alerts *repository.PGAlertStore,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
	notifiers []drepo.AlertNotifier,
) *usecase.AlertDeduplicator {
	return usecase.NewAlertDeduplicator(alerts, m, l, cfg.Alerts.Cooldown, notifiers...)
}

func ProvideAlertScheduler(
	market drepo.MarketStore,
	engine *alerting.Engine,
	dedup *usecase.AlertDeduplicator,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.AlertScheduler {
	return usecase.NewAlertScheduler(market, engine, dedup, m, l, usecase.AlertConfig{
		Interval:       cfg.Scheduler.AlertInterval,
		VolumeLookback: cfg.Alerts.VolumeLookback,
		RestartDelay:   cfg.Scheduler.RestartDelay,
	})
}

func ProvideScheduler(
	collection *usecase.CollectionScheduler,
	alerts *usecase.AlertScheduler,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Scheduler {
	return usecase.NewScheduler(collection, alerts, l, cfg.Scheduler.RestartDelay)
}

// ProvideMarketIngestHandler stores snapshots consumed from the market topic.
func ProvideMarketIngestHandler(store *repository.CHMarketStore, m drepo.Metrics, cfg *config.Config) *usecase.MarketIngestHandler {
	return usecase.NewMarketIngestHandler(cfg.Kafka.Consumer.Topic, store, m)
}

func ProvideSchedulerHandler(l *applogger.Logger, sched *usecase.Scheduler, alerts *repository.PGAlertStore) *api.SchedulerEchoHandler {
	return api.NewSchedulerEchoHandler(l, sched, alerts)
}

// ProvideHTTPServer mounts the control API, the alert stream and /metrics.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	h *api.SchedulerEchoHandler,
	hub *ws.AlertHub,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	}
	if cfg.Server.Host != "" {
		opts = append(opts, xhttp.WithHost(cfg.Server.Host))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer([]xhttp.Handler{h, hub}, opts...)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sched *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	ingest *usecase.MarketIngestHandler,
	m drepo.Metrics,
	httpServer *xhttp.Server,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.TimingHook(func(topic string, d time.Duration, _ error) {
			m.RecordLatency("consume_"+topic, d.Seconds())
		}))
		consumer.RegisterHandler(ingest)
	}
	return server.New(cfg, l, sched, consumer, httpServer)
}
