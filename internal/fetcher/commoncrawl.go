package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/IliaW/listing-alert-worker/config"
	jsoniter "github.com/json-iterator/go"
	"github.com/karust/gogetcrawl/common"
	"github.com/karust/gogetcrawl/commoncrawl"
	"github.com/patrickmn/go-cache"
)

const collectionsURL = "https://index.commoncrawl.org/collinfo.json"

// Archived records carry WARC and HTTP headers in front of the document.
var documentRe = regexp.MustCompile(`(?si)<!doctype html>.*?</html>`)

type collection struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	CdxAPI string `json:"cdx-api"`
}

// CommonCrawlFetcher serves listing pages from the newest Common Crawl collections that
// archived them. Used when the live site refuses the worker.
type CommonCrawlFetcher struct {
	client      *commoncrawl.CommonCrawl
	cfg         *config.CommonCrawlConfig
	log         *slog.Logger
	collections *cache.Cache
}

func NewCommonCrawlFetcher(cfg *config.CommonCrawlConfig, log *slog.Logger) *CommonCrawlFetcher {
	f := &CommonCrawlFetcher{
		cfg:         cfg,
		log:         log,
		collections: cache.New(72*time.Hour, 72*time.Hour), // a new collection appears about monthly
	}
	if err := f.connect(); err != nil {
		log.Warn("common crawl is not reachable yet.", slog.String("err", err.Error()))
	}
	return f
}

func (f *CommonCrawlFetcher) connect() error {
	if f.client != nil {
		return nil
	}
	client, err := commoncrawl.New(f.cfg.RequestTimeout, f.cfg.Retries)
	if err != nil {
		return fmt.Errorf("connect to common crawl: %w", err)
	}
	f.client = client
	return nil
}

func (f *CommonCrawlFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.connect(); err != nil {
		return nil, err
	}
	colls, err := f.latestCollections()
	if err != nil {
		return nil, fmt.Errorf("common crawl collections: %w", err)
	}

	query := common.RequestConfig{
		URL:     url,
		Filters: []string{"statuscode:200", "mimetype:text/html"},
	}
	for i := 0; i < len(colls) && i < f.cfg.LastCrawlIndexes; i++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		captures, _ := f.client.GetPagesIndex(query, colls[i].ID)
		if len(captures) == 0 {
			f.log.Debug("page not archived in collection.", slog.String("url", url),
				slog.String("collection", colls[i].ID))
			continue
		}
		record, err := f.client.GetFile(captures[len(captures)-1])
		if err != nil {
			return nil, fmt.Errorf("common crawl record for %s: %w", url, err)
		}
		if doc := documentRe.Find(record); doc != nil {
			return doc, nil
		}
	}

	return nil, fmt.Errorf("%w: %s is not archived", ErrStatus, url)
}

// latestCollections lists collections newest first, as the index server returns them.
func (f *CommonCrawlFetcher) latestCollections() ([]collection, error) {
	if v, ok := f.collections.Get(collectionsURL); ok {
		return v.([]collection), nil
	}
	body, err := common.Get(collectionsURL, f.client.MaxTimeout, f.client.MaxRetries)
	if err != nil {
		return nil, err
	}
	var colls []collection
	if err = jsoniter.Unmarshal(body, &colls); err != nil {
		return nil, err
	}
	f.collections.SetDefault(collectionsURL, colls)

	return colls, nil
}
