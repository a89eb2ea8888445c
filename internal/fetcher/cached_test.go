package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type mapCache struct {
	pages map[string][]byte
	saves int
}

func (c *mapCache) GetPage(url string) ([]byte, bool) {
	b, ok := c.pages[url]
	return b, ok
}

func (c *mapCache) SavePage(url string, body []byte) {
	c.saves++
	c.pages[url] = body
}

func (c *mapCache) Close() {}

func TestCachingFetcherServesRepeatedRequests(t *testing.T) {
	calls := 0
	next := Func(func(_ context.Context, url string) ([]byte, error) {
		calls++
		return []byte("body of " + url), nil
	})
	shared := &mapCache{pages: map[string][]byte{}}
	f := NewCachingFetcher(next, time.Minute, shared, testLog)

	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), "https://a")
		if err != nil || string(body) != "body of https://a" {
			t.Fatalf("unexpected fetch result: %q, %v", body, err)
		}
	}
	if calls != 1 || shared.saves != 1 {
		t.Fatalf("expected a single upstream fetch and save, got %d and %d", calls, shared.saves)
	}
}

func TestCachingFetcherUsesSharedCache(t *testing.T) {
	next := Func(func(context.Context, string) ([]byte, error) {
		t.Fatalf("upstream must not be called")
		return nil, nil
	})
	shared := &mapCache{pages: map[string][]byte{"https://b": []byte("cached")}}
	f := NewCachingFetcher(next, time.Minute, shared, testLog)

	body, err := f.Fetch(context.Background(), "https://b")
	if err != nil || string(body) != "cached" {
		t.Fatalf("unexpected fetch result: %q, %v", body, err)
	}
}

func TestCachingFetcherDoesNotCacheErrors(t *testing.T) {
	calls := 0
	next := Func(func(context.Context, string) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, ErrStatus
		}
		return []byte("ok"), nil
	})
	f := NewCachingFetcher(next, time.Minute, nil, testLog)

	if _, err := f.Fetch(context.Background(), "https://c"); !errors.Is(err, ErrStatus) {
		t.Fatalf("expected first fetch to fail, got %v", err)
	}
	body, err := f.Fetch(context.Background(), "https://c")
	if err != nil || string(body) != "ok" || calls != 2 {
		t.Fatalf("failure was cached: %q, %v, calls=%d", body, err, calls)
	}
}
