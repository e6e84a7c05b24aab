package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`

	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Log struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"finalert.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`

	Scheduler struct {
		// ManualStart leaves both schedulers stopped until POST /api/scheduler/start.
		ManualStart        bool          `yaml:"manual_start"`
		CollectionInterval time.Duration `yaml:"collection_interval" default:"5m"`
		AlertInterval      time.Duration `yaml:"alert_interval" default:"5m"`
		// hard upper bound of three concurrent fetches
		MaxConcurrent int           `yaml:"max_concurrent" default:"3" validate:"gte=1,lte=3"`
		BatchDelay    time.Duration `yaml:"batch_delay" default:"1s"`
		RestartDelay  time.Duration `yaml:"restart_delay" default:"1s"`
	} `yaml:"scheduler"`

	Feed struct {
		UserAgent   string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; CryptoNewsBot/1.0)"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		MaxItems    int           `yaml:"max_items" default:"20" validate:"gt=0"`
		MaxContent  int           `yaml:"max_content" default:"500" validate:"gt=0"`
		HostRPS     float64       `yaml:"host_rps" default:"1"`
		HostBurst   int           `yaml:"host_burst" default:"2"`
		MaxBodySize int64         `yaml:"max_body_size" default:"5242880"`
		// Sources are upserted into the source registry at start-up. Existing rows keep their state.
		Sources []SourceSeed `yaml:"sources" validate:"dive"`
	} `yaml:"feed"`

	Alerts struct {
		Cooldown       time.Duration `yaml:"cooldown" default:"4h"`
		VolumeLookback time.Duration `yaml:"volume_lookback" default:"168h"`
		NotifyTopic    string        `yaml:"notify_topic" default:"alerts"`
		Rules          struct {
			PriceChangeHigh   float64 `yaml:"price_change_high" default:"8"`
			PriceChangeMedium float64 `yaml:"price_change_medium" default:"5"`
			PriceChangeLow    float64 `yaml:"price_change_low" default:"3"`
			LevelProximity    float64 `yaml:"level_proximity" default:"0.02"`
			LevelMinChange    float64 `yaml:"level_min_change" default:"2"`
			VolumeHigh        float64 `yaml:"volume_high" default:"4"`
			VolumeMedium      float64 `yaml:"volume_medium" default:"2.5"`
			VolumeMinSamples  int     `yaml:"volume_min_samples" default:"5"`
			GreedThreshold    int     `yaml:"greed_threshold" default:"80"`
			FearThreshold     int     `yaml:"fear_threshold" default:"20"`
			// PriceLevels replaces the rule engine's built-in allow-list when set.
			PriceLevels map[string][]float64 `yaml:"price_levels"`
		} `yaml:"rules"`
	} `yaml:"alerts"`

	Postgres struct {
		DSN             string        `yaml:"dsn" validate:"required"`
		MaxConns        int32         `yaml:"max_conns" default:"10"`
		MinConns        int32         `yaml:"min_conns" default:"1"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"5s"`
	} `yaml:"postgres"`

	ClickHouse struct {
		Host             string        `yaml:"host" validate:"required"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finalert"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Addr      string        `yaml:"addr" default:"localhost:6379"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		VolumeTTL time.Duration `yaml:"volume_ttl" default:"2m"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers      []string `yaml:"brokers" validate:"required,min=1"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"20ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Disabled   bool          `yaml:"disabled"`
			Topic      string        `yaml:"topic" default:"market.snapshots"`
			GroupID    string        `yaml:"group_id" default:"finalert-market-ingest"`
			Workers    int           `yaml:"workers" default:"4" validate:"gt=0"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"market.snapshots.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads a YAML file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes raw YAML the same way Load does.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	r := c.Alerts.Rules
	if !(r.PriceChangeHigh > r.PriceChangeMedium && r.PriceChangeMedium > r.PriceChangeLow && r.PriceChangeLow > 0) {
		return fmt.Errorf("alerts.rules: price change tiers must be strictly decreasing and positive")
	}
	if r.VolumeHigh <= r.VolumeMedium {
		return fmt.Errorf("alerts.rules: volume_high must exceed volume_medium")
	}
	if c.Scheduler.CollectionInterval <= 0 || c.Scheduler.AlertInterval <= 0 {
		return fmt.Errorf("scheduler: intervals must be positive")
	}
	return nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// SourceSeed is a feed source declared in configuration.
type SourceSeed struct {
	ID      string `yaml:"id" validate:"required"`
	Name    string `yaml:"name"`
	URL     string `yaml:"url" validate:"required,url"`
	Enabled *bool  `yaml:"enabled"`
}
