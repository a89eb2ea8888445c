package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/IliaW/listing-alert-worker/internal/exclusion"
	"github.com/IliaW/listing-alert-worker/internal/fetcher"
	"github.com/IliaW/listing-alert-worker/internal/model"
)

const seed = "https://www.example.com/b-road-bike/k0"

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSite struct {
	pages   map[string]string
	fetched []string
}

func (s *fakeSite) fetcher() fetcher.Fetcher {
	return fetcher.Func(func(_ context.Context, url string) ([]byte, error) {
		s.fetched = append(s.fetched, url)
		page, ok := s.pages[url]
		if !ok {
			return nil, fmt.Errorf("%w: 404 for %s", fetcher.ErrStatus, url)
		}
		return []byte(page), nil
	})
}

func adNode(id, title string) string {
	return fmt.Sprintf(`<div class="search-item regular-ad" data-listing-id="%s">
<a class="title" href="/v/%s">%s</a><div class="price">$%s</div><div class="description">desc %s</div></div>`,
		id, id, title, id, id)
}

func thirdPartyNode(id string) string {
	return fmt.Sprintf(`<div class="third-party" data-listing-id="%s"></div>`, id)
}

func page(header, next string, nodes ...string) string {
	b := &strings.Builder{}
	b.WriteString("<html><body>")
	b.WriteString(header)
	for _, n := range nodes {
		b.WriteString(n)
	}
	if next != "" {
		fmt.Fprintf(b, `<a title="Next" href="%s">Next</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func threePageSite() *fakeSite {
	return &fakeSite{pages: map[string]string{
		seed: page(`<div class="message"><strong>« "road bike" »</strong></div>`, "/b-road-bike/page-2/k0",
			adNode("1", "Trek"), adNode("2", "Kids bike"), thirdPartyNode("90")),
		"https://www.example.com/b-road-bike/page-2/k0": page("", "/b-road-bike/page-3/k0",
			adNode("1", "Trek"), adNode("3", "Giant")),
		"https://www.example.com/b-road-bike/page-3/k0": page("", "", adNode("4", "Cannondale")),
	}}
}

func TestCrawlPaginates(t *testing.T) {
	site := threePageSite()
	c := New(site.fetcher(), exclusion.New([]string{"kids"}), model.Registry{}, testLog)

	newAds, title, err := c.Crawl(context.Background(), seed, 10)
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if title != "Road Bike" {
		t.Fatalf("unexpected title: %q", title)
	}
	if len(site.fetched) != 3 {
		t.Fatalf("expected 3 fetches, got %v", site.fetched)
	}
	if len(newAds) != 3 || !newAds.Has("1") || !newAds.Has("3") || !newAds.Has("4") {
		t.Fatalf("unexpected new ads: %v", newAds.IDs())
	}
	if newAds.Has("2") {
		t.Fatalf("excluded ad was returned")
	}
	for id, ad := range newAds {
		if ad.OriginalURL != seed {
			t.Fatalf("ad %s has original url %q", id, ad.OriginalURL)
		}
	}
	if all := c.Ads(); len(all) != 3 || all["4"].OriginalURL != seed {
		t.Fatalf("unexpected registry: %v", all.IDs())
	}
}

func TestCrawlIsIdempotent(t *testing.T) {
	site := threePageSite()
	c := New(site.fetcher(), nil, model.Registry{}, testLog)
	if _, _, err := c.Crawl(context.Background(), seed, 10); err != nil {
		t.Fatalf("first Crawl error: %v", err)
	}

	again := New(site.fetcher(), nil, c.Ads(), testLog)
	newAds, _, err := again.Crawl(context.Background(), seed, 10)
	if err != nil {
		t.Fatalf("second Crawl error: %v", err)
	}
	if len(newAds) != 0 {
		t.Fatalf("expected no new ads, got %v", newAds.IDs())
	}
}

func TestCrawlDoesNotModifyCallerRegistry(t *testing.T) {
	known := model.Registry{"1": {ID: "1", Title: "Trek"}}
	c := New(threePageSite().fetcher(), nil, known, testLog)
	if _, _, err := c.Crawl(context.Background(), seed, 10); err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if len(known) != 1 || known["1"].OriginalURL != "" {
		t.Fatalf("caller registry changed: %+v", known)
	}
}

func TestCrawlSkipsThirdPartyFromLaterPage(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		seed: page("", "/p2", adNode("5", "Looks organic"), adNode("6", "Organic")),
		"https://www.example.com/p2": page("", "", thirdPartyNode("5")),
	}}
	c := New(site.fetcher(), nil, model.Registry{}, testLog)

	newAds, _, err := c.Crawl(context.Background(), seed, 10)
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if newAds.Has("5") || c.Ads().Has("5") {
		t.Fatalf("third party ad must not be kept")
	}
	if !newAds.Has("6") {
		t.Fatalf("organic ad missing: %v", newAds.IDs())
	}
}

func TestCrawlStopsAfterMaxPages(t *testing.T) {
	site := &fakeSite{pages: map[string]string{}}
	for i := 1; i <= 10; i++ {
		url := fmt.Sprintf("https://www.example.com/page-%d", i)
		if i == 1 {
			url = seed
		}
		site.pages[url] = page("", fmt.Sprintf("/page-%d", i+1), adNode(fmt.Sprint(i), "bike"))
	}
	c := New(site.fetcher(), nil, model.Registry{}, testLog)

	newAds, _, err := c.Crawl(context.Background(), seed, 2)
	if err != nil {
		t.Fatalf("hitting the page bound must not fail: %v", err)
	}
	if len(site.fetched) > 3 {
		t.Fatalf("expected at most 3 fetches, got %d", len(site.fetched))
	}
	if len(newAds) == 0 {
		t.Fatalf("ads found before the bound must be returned")
	}
}

func TestCrawlStopsOnPaginationLoop(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		seed: page("", seed, adNode("1", "bike")),
	}}
	c := New(site.fetcher(), nil, model.Registry{}, testLog)
	if _, _, err := c.Crawl(context.Background(), seed, 0); err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if len(site.fetched) != 1 {
		t.Fatalf("expected a single fetch, got %v", site.fetched)
	}
}

func TestCrawlFetchErrorRollsBack(t *testing.T) {
	site := &fakeSite{pages: map[string]string{
		seed: page("", "/missing", adNode("1", "bike")),
	}}
	c := New(site.fetcher(), nil, model.Registry{}, testLog)

	_, _, err := c.Crawl(context.Background(), seed, 10)
	if !errors.Is(err, ErrFetch) || !errors.Is(err, fetcher.ErrStatus) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if len(c.Ads()) != 0 {
		t.Fatalf("failed crawl must not keep ads: %v", c.Ads().IDs())
	}
}
