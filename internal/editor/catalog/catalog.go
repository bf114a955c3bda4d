package catalog

import (
	"context"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/htmlprocessor"
	"github.com/edgecomet/seoeditor/internal/common/redis"
	"github.com/edgecomet/seoeditor/internal/editor/metrics"
	"github.com/edgecomet/seoeditor/internal/editor/site"
	"github.com/edgecomet/seoeditor/pkg/types"
)

// LastModifiedFormat is the layout of CatalogEntry.LastModified
const LastModifiedFormat = "2006-01-02"

// PageSource is the part of site.Store the catalog reads from
type PageSource interface {
	Pages() ([]site.Page, error)
	Read(rel string) (string, time.Time, error)
}

// ScoreCache stores catalog scores by key. *redis.Client satisfies it.
// Get returns "" for a missing key.
type ScoreCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CacheRecorder receives the outcome of each cache lookup
type CacheRecorder interface {
	RecordCatalogCache(result string)
}

// Catalog builds the page listing shown in the editor
type Catalog struct {
	source   PageSource
	cache    ScoreCache
	ttl      time.Duration
	recorder CacheRecorder
	logger   *zap.Logger
}

// Option configures a Catalog
type Option func(*Catalog)

// WithScoreCache caches scores under a content hash for ttl
func WithScoreCache(cache ScoreCache, ttl time.Duration) Option {
	return func(c *Catalog) {
		c.cache = cache
		c.ttl = ttl
	}
}

// WithRecorder reports cache hits and misses
func WithRecorder(recorder CacheRecorder) Option {
	return func(c *Catalog) {
		c.recorder = recorder
	}
}

func New(source PageSource, logger *zap.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		source: source,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns one entry per discovered page, in discovery order.
// Pages that disappear or fail to read while listing are skipped.
func (c *Catalog) List(ctx context.Context) ([]types.CatalogEntry, error) {
	pages, err := c.source.Pages()
	if err != nil {
		return nil, err
	}

	entries := make([]types.CatalogEntry, 0, len(pages))
	for _, page := range pages {
		content, modTime, err := c.source.Read(page.Path)
		if err != nil {
			c.logger.Warn("Skipping unreadable page",
				zap.String("file_path", page.Path),
				zap.Error(err))
			continue
		}

		entries = append(entries, types.CatalogEntry{
			ID:           PageID(page.Path),
			URL:          "/" + page.Path,
			Title:        Title(page.Path),
			Status:       types.PageStatusPublished,
			LastModified: modTime.Format(LastModifiedFormat),
			SEOScore:     c.score(ctx, content),
			FilePath:     page.Path,
		})
	}

	return entries, nil
}

// score returns the catalog score of content, going through the cache when one
// is configured. Cache failures fall back to computing the score.
func (c *Catalog) score(ctx context.Context, content string) int {
	if c.cache == nil {
		return htmlprocessor.CatalogScore(content)
	}

	key := redis.ScoreKey(content)
	cached, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.record(metrics.CacheError)
		c.logger.Debug("Score cache unavailable", zap.String("key", key), zap.Error(err))
		return htmlprocessor.CatalogScore(content)
	case cached != "":
		if score, err := strconv.Atoi(cached); err == nil {
			c.record(metrics.CacheHit)
			return score
		}
	}

	c.record(metrics.CacheMiss)
	score := htmlprocessor.CatalogScore(content)
	if err := c.cache.Set(ctx, key, score, c.ttl); err != nil {
		c.logger.Debug("Failed to cache score", zap.String("key", key), zap.Error(err))
	}
	return score
}

func (c *Catalog) record(result string) {
	if c.recorder != nil {
		c.recorder.RecordCatalogCache(result)
	}
}

// PageID is a stable identifier derived from the page path
func PageID(rel string) string {
	return strconv.FormatUint(xxhash.Sum64String(rel), 16)
}

// Title turns "blog/my-first_post.html" into "My first post"
func Title(rel string) string {
	base := path.Base(rel)
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)

	r, size := utf8.DecodeRuneInString(stem)
	if r == utf8.RuneError {
		return stem
	}
	return string(unicode.ToUpper(r)) + stem[size:]
}
