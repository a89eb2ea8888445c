package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/bradfitz/gomemcache/memcache"
)

// PageCache stores fetched page bodies keyed by url.
type PageCache interface {
	GetPage(url string) ([]byte, bool)
	SavePage(url string, body []byte)
	Close()
}

type MemcachedClient struct {
	client *memcache.Client
	cfg    *config.CacheConfig
	log    *slog.Logger
}

func NewMemcachedClient(cacheConfig *config.CacheConfig, log *slog.Logger) *MemcachedClient {
	log.Info("connecting to memcached...")
	ss := new(memcache.ServerList)
	servers := strings.Split(cacheConfig.Servers, ",")
	err := ss.SetServers(servers...)
	if err != nil {
		log.Error("failed to set memcached servers.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	c := &MemcachedClient{
		client: memcache.NewFromSelector(ss),
		cfg:    cacheConfig,
		log:    log,
	}
	c.log.Info("pinging the memcached.")
	err = c.client.Ping()
	if err != nil {
		log.Error("connection to the memcached is failed.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	c.log.Info("connected to memcached!")

	return c
}

func (mc *MemcachedClient) GetPage(url string) ([]byte, bool) {
	key := hashURL(url)
	item, err := mc.client.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			mc.log.Warn("failed to read page from cache.", slog.String("key", key),
				slog.String("err", err.Error()))
		}
		return nil, false
	}
	mc.log.Debug("page found in cache.", slog.String("url", url))

	return item.Value, true
}

func (mc *MemcachedClient) SavePage(url string, body []byte) {
	if len(body) == 0 {
		mc.log.Warn("page body is empty. Skip saving to cache.")
		return
	}
	key := hashURL(url)
	item := &memcache.Item{
		Key:        key,
		Value:      body,
		Expiration: int32(mc.cfg.TtlForPage.Seconds()),
	}
	if err := mc.client.Set(item); err != nil {
		// memcached rejects values bigger than its item size limit, pages are skipped then
		mc.log.Error("failed to save page to cache.", slog.String("key", key),
			slog.String("err", err.Error()))
		return
	}
	mc.log.Debug("page saved to cache.")
}

func (mc *MemcachedClient) Close() {
	mc.log.Info("closing memcached connection.")
	err := mc.client.Close()
	if err != nil {
		mc.log.Error("failed to close memcached connection.", slog.String("err", err.Error()))
	}
}

func hashURL(url string) string {
	hash := sha256.New()
	hash.Write([]byte(url))
	return hex.EncodeToString(hash.Sum(nil))
}
