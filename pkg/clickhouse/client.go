package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Settings describes one ClickHouse endpoint. Zero fields fall back to defaults.
type Settings struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// HTTP selects the HTTP interface instead of the native protocol.
	HTTP bool

	AsyncInsert  bool
	WaitForAsync bool

	MaxOpen      int
	MaxIdle      int
	ConnLifetime time.Duration

	DialTimeout time.Duration
	ReadTimeout time.Duration
	MaxExecTime time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.Port <= 0 {
		s.Port = 9000
	}
	if s.Database == "" {
		s.Database = "default"
	}
	if s.User == "" {
		s.User = "default"
	}
	if s.MaxOpen <= 0 {
		s.MaxOpen = 10
	}
	if s.MaxIdle <= 0 {
		s.MaxIdle = 5
	}
	if s.ConnLifetime <= 0 {
		s.ConnLifetime = 5 * time.Minute
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = 5 * time.Second
	}
	return s
}

// DSN renders the settings as a clickhouse-go connection string.
func (s Settings) DSN() string {
	scheme := "clickhouse"
	if s.HTTP {
		scheme = "http"
	}

	q := url.Values{}
	if s.DialTimeout > 0 {
		q.Set("dial_timeout", s.DialTimeout.String())
	}
	if s.ReadTimeout > 0 {
		q.Set("read_timeout", s.ReadTimeout.String())
	}
	if s.MaxExecTime > 0 {
		q.Set("max_execution_time", strconv.Itoa(int(s.MaxExecTime/time.Second)))
	}
	if s.AsyncInsert {
		q.Set("async_insert", "1")
		if s.WaitForAsync {
			q.Set("wait_for_async_insert", "1")
		}
	}

	return (&url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(s.User, s.Password),
		Host:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:     "/" + s.Database,
		RawQuery: q.Encode(),
	}).String()
}

// Client wraps the database/sql pool used by the market stores.
type Client struct {
	db *sql.DB
}

// Open connects and pings. The pool is closed again when the ping fails.
func Open(ctx context.Context, s Settings) (*Client, error) {
	if s.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}
	s = s.withDefaults()

	db, err := sql.Open("clickhouse", s.DSN())
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(s.MaxOpen)
	db.SetMaxIdleConns(s.MaxIdle)
	db.SetConnMaxLifetime(s.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, s.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", s.Host, err)
	}
	return &Client{db: db}, nil
}

func (c *Client) DB() *sql.DB { return c.db }

func (c *Client) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InitSchema applies idempotent DDL in order and stops at the first failure.
func (c *Client) InitSchema(ctx context.Context, ddl []string) error {
	for i, stmt := range ddl {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse ddl #%d: %w", i, err)
		}
	}
	return nil
}
