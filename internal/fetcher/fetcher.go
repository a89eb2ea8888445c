package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/IliaW/listing-alert-worker/internal/model"
)

// ErrStatus is wrapped by fetch errors caused by a non-success response.
var ErrStatus = errors.New("unexpected response status")

// Fetcher performs a blocking GET and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, url string) ([]byte, error)

func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// NewPageFetcher returns the fetcher for the configured scrape mechanism.
func NewPageFetcher(cfg *config.FetcherConfig, log *slog.Logger) Fetcher {
	mechanism := model.ScrapeMechanism(cfg.ScrapeMechanism)
	if mechanism < model.Curl || mechanism > model.CommonCrawl {
		log.Warn("unsupported scrape mechanism. Using curl.", slog.Int("mechanism", cfg.ScrapeMechanism))
		mechanism = model.Curl
	}
	log.Info("page fetcher selected.", slog.String("mechanism", mechanism.String()))
	switch mechanism {
	case model.HeadlessBrowser:
		return NewBrowserFetcher(cfg, log)
	case model.CommonCrawl:
		return NewCommonCrawlFetcher(cfg.CommonCrawl, log)
	default:
		return NewCollyFetcher(cfg, log)
	}
}
