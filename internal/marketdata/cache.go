package marketdata

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Compile-time interface check.
var _ Source = (*CachedNewsSource)(nil)

// newsRecord is the Parquet schema for cached news articles.
// Layout on disk: <dataDir>/news/<SYMBOL>/<YYYY-MM-DD>.parquet
type newsRecord struct {
	Symbol   string `parquet:"symbol"`
	Time     int64  `parquet:"time,timestamp(millisecond)"` // Unix ms
	Source   string `parquet:"source"`
	Headline string `parquet:"headline"`
	Summary  string `parquet:"summary"`
	URL      string `parquet:"url"`
}

// CachedNewsSource wraps a Source and archives news responses to Parquet
// files, one file per symbol and day. Repeat lookups within a day are served
// from disk, keeping them off the provider's rate limit. All other lookups
// pass straight through.
type CachedNewsSource struct {
	Source

	dataDir string
	log     *slog.Logger
}

// NewCachedNewsSource wraps src with a Parquet news cache rooted at dataDir.
func NewCachedNewsSource(src Source, dataDir string) *CachedNewsSource {
	return &CachedNewsSource{
		Source:  src,
		dataDir: dataDir,
		log:     slog.Default().With("component", "newscache"),
	}
}

// News serves articles from the day's cache file when present, otherwise
// fetches from the wrapped source and archives the result. Cache problems are
// logged and degrade to a plain fetch, never to an error.
func (c *CachedNewsSource) News(ctx context.Context, symbol string, limit int) ([]Article, error) {
	symbol = strings.ToUpper(symbol)
	day := time.Now().UTC().Format("2006-01-02")
	path := c.newsPath(symbol, day)

	if records, err := parquet.ReadFile[newsRecord](path); err == nil {
		return recordsToArticles(records, limit), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("reading news cache", "path", path, "error", err)
	}

	articles, err := c.Source.News(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	if err := c.writeNews(path, symbol, articles); err != nil {
		c.log.Warn("writing news cache", "path", path, "error", err)
	}
	return articles, nil
}

func (c *CachedNewsSource) newsPath(symbol, day string) string {
	return filepath.Join(c.dataDir, "news", symbol, day+".parquet")
}

func (c *CachedNewsSource) writeNews(path, symbol string, articles []Article) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	records := make([]newsRecord, 0, len(articles))
	for _, a := range articles {
		records = append(records, newsRecord{
			Symbol:   symbol,
			Time:     a.Time.UnixMilli(),
			Source:   a.Source,
			Headline: a.Headline,
			Summary:  a.Summary,
			URL:      a.URL,
		})
	}
	return parquet.WriteFile(path, records)
}

func recordsToArticles(records []newsRecord, limit int) []Article {
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	articles := make([]Article, 0, len(records))
	for _, r := range records {
		articles = append(articles, Article{
			Time:     time.UnixMilli(r.Time).UTC(),
			Source:   r.Source,
			Headline: r.Headline,
			Summary:  r.Summary,
			URL:      r.URL,
		})
	}
	return articles
}
