package fetcher

import (
	"context"
	"log/slog"
	"time"

	pagecache "github.com/IliaW/listing-alert-worker/internal/cache"
	"github.com/patrickmn/go-cache"
)

// CachingFetcher serves repeated requests for the same url from memory, then from the
// optional shared cache, and only then from the wrapped fetcher. Failed fetches are not cached.
type CachingFetcher struct {
	next   Fetcher
	local  *cache.Cache
	shared pagecache.PageCache
	log    *slog.Logger
}

// NewCachingFetcher wraps next. shared may be nil.
func NewCachingFetcher(next Fetcher, ttl time.Duration, shared pagecache.PageCache, log *slog.Logger) *CachingFetcher {
	return &CachingFetcher{
		next:   next,
		local:  cache.New(ttl, 2*ttl),
		shared: shared,
		log:    log,
	}
}

func (f *CachingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if body, ok := f.local.Get(url); ok {
		f.log.Debug("page served from local cache.", slog.String("url", url))
		return body.([]byte), nil
	}
	if f.shared != nil {
		if body, ok := f.shared.GetPage(url); ok {
			f.local.SetDefault(url, body)
			return body, nil
		}
	}

	body, err := f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	f.local.SetDefault(url, body)
	if f.shared != nil {
		f.shared.SavePage(url, body)
	}

	return body, nil
}
