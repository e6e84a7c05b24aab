package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"FinAlert/internal/domain/errs"
	"FinAlert/internal/domain/models"
	"FinAlert/internal/domain/repository"
	"FinAlert/internal/service/ratelimit"
	xhttp "FinAlert/pkg/http"
	"FinAlert/pkg/logger"
	"FinAlert/pkg/util"
)

const acceptFeeds = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8"

// Config tunes fetching and normalization.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxItems    int
	MaxContent  int
	MaxBodySize int64
}

// Option configures Fetcher.
type Option func(*Fetcher)

func WithConfig(cfg Config) Option {
	return func(f *Fetcher) {
		if cfg.UserAgent != "" {
			f.cfg.UserAgent = cfg.UserAgent
		}
		if cfg.Timeout > 0 {
			f.cfg.Timeout = cfg.Timeout
		}
		if cfg.MaxItems > 0 {
			f.cfg.MaxItems = cfg.MaxItems
		}
		if cfg.MaxContent > 0 {
			f.cfg.MaxContent = cfg.MaxContent
		}
		if cfg.MaxBodySize > 0 {
			f.cfg.MaxBodySize = cfg.MaxBodySize
		}
	}
}

// WithLimiter throttles requests per feed host.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// Fetcher downloads RSS/Atom/JSON feeds, normalizes entries into FeedItems and
// hands them to an ItemStore. It implements repository.FeedFetcher.
type Fetcher struct {
	cfg     Config
	client  *xhttp.Client
	parser  *gofeed.Parser
	limiter *ratelimit.Limiter
	items   repository.ItemStore
	log     *logger.Logger
	now     func() time.Time
}

func NewFetcher(items repository.ItemStore, l *logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg: Config{
			UserAgent:   "Mozilla/5.0 (compatible; CryptoNewsBot/1.0)",
			Timeout:     30 * time.Second,
			MaxItems:    20,
			MaxContent:  500,
			MaxBodySize: 5 << 20,
		},
		parser: gofeed.NewParser(),
		items:  items,
		log:    l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = xhttp.NewClient(xhttp.WithTimeout(f.cfg.Timeout), xhttp.WithUserAgent(f.cfg.UserAgent))
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	return f
}

// FetchAndParseFeed retrieves src.URL and returns at most MaxItems entries, newest first.
// Every failure is a *errs.FetchError.
func (f *Fetcher) FetchAndParseFeed(ctx context.Context, src models.Source) ([]models.FeedItem, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitForURL(ctx, src.URL); err != nil {
			return nil, errs.NewFetchError(src.URL, "ratelimit", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := f.client.Get(ctx, src.URL, map[string]string{"Accept": acceptFeeds})
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, errs.NewFetchError(src.URL, "status", err)
		}
		return nil, errs.NewFetchError(src.URL, "request", err)
	}
	defer resp.Body.Close()

	parsed, err := f.parser.Parse(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, errs.NewFetchError(src.URL, "parse", err)
	}

	items := f.normalize(src.ID, parsed.Items)
	f.log.Debug("feed fetched",
		logger.String("source_id", src.ID),
		logger.String("feed_title", parsed.Title),
		logger.Int("entries", len(parsed.Items)),
		logger.Int("kept", len(items)),
		logger.Duration("duration_ms", time.Since(start)))
	return items, nil
}

// SaveItems persists items and returns how many were new. On failure the count saved
// before the error is returned together with a *errs.PersistenceError.
func (f *Fetcher) SaveItems(ctx context.Context, items []models.FeedItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	n, err := f.items.InsertItems(ctx, items)
	if err != nil && !errs.IsPersistence(err) {
		err = errs.NewPersistenceError("item", items[0].SourceID, err)
	}
	return n, err
}

func (f *Fetcher) normalize(sourceID string, entries []*gofeed.Item) []models.FeedItem {
	now := f.now().UTC()
	out := make([]models.FeedItem, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		out = append(out, f.toItem(sourceID, e, now))
	}

	// undated entries were stamped with now, so they sort with the freshest
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > f.cfg.MaxItems {
		out = out[:f.cfg.MaxItems]
	}
	return out
}

func (f *Fetcher) toItem(sourceID string, e *gofeed.Item, now time.Time) models.FeedItem {
	title := util.StripHTML(e.Title)
	if title == "" {
		title = "No Title"
	}

	body := e.Description
	if body == "" {
		body = e.Content
	}
	content := util.Truncate(util.StripHTML(body), f.cfg.MaxContent)

	published := now
	switch {
	case e.PublishedParsed != nil:
		published = e.PublishedParsed.UTC()
	case e.UpdatedParsed != nil:
		published = e.UpdatedParsed.UTC()
	default:
		if t, ok := util.ParseTime(e.Published); ok {
			published = t.UTC()
		}
	}

	link := e.Link
	if link == "" && len(e.Links) > 0 {
		link = e.Links[0]
	}

	return models.FeedItem{
		SourceID:    sourceID,
		ExternalID:  externalID(e.GUID, link, title, published),
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Content:     content,
		Coins:       ExtractCoins(title + " " + content),
		Urgency:     ClassifyUrgency(title, content),
	}
}

// externalID prefers the feed's GUID, then the link, then a digest of title and date.
func externalID(guid, link, title string, published time.Time) string {
	if guid != "" {
		return guid
	}
	if link != "" {
		return link
	}
	sum := sha256.Sum256([]byte(title + "|" + published.Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}
