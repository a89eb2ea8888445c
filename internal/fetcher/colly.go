package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/gocolly/colly"
)

// CollyFetcher fetches pages with plain HTTP requests. When a cache dir is configured,
// GET responses are kept on disk and reused by later runs.
type CollyFetcher struct {
	collector *colly.Collector
	log       *slog.Logger
}

func NewCollyFetcher(cfg *config.FetcherConfig, log *slog.Logger) *CollyFetcher {
	opts := []func(*colly.Collector){colly.AllowURLRevisit()}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	if cfg.CacheDir != "" {
		log.Info("http responses are cached on disk.", slog.String("dir", cfg.CacheDir))
		opts = append(opts, colly.CacheDir(cfg.CacheDir))
	}
	c := colly.NewCollector(opts...)
	if cfg.ScrapeTimeout > 0 {
		c.SetRequestTimeout(cfg.ScrapeTimeout)
	}

	return &CollyFetcher{collector: c, log: log}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	// A clone shares limits and transport but has its own callbacks.
	c := f.collector.Clone()
	var body []byte
	statusCode := 0
	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
		statusCode = resp.StatusCode
	})
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil {
			statusCode = resp.StatusCode
		}
	})

	f.log.Debug("fetching.", slog.String("url", url))
	if err := c.Visit(url); err != nil {
		if statusCode != 0 {
			return nil, fmt.Errorf("%w: %d for %s: %v", ErrStatus, statusCode, url, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: %d for %s", ErrStatus, statusCode, url)
	}

	return body, nil
}
