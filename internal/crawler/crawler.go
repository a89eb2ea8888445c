package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IliaW/listing-alert-worker/internal/exclusion"
	"github.com/IliaW/listing-alert-worker/internal/extractor"
	"github.com/IliaW/listing-alert-worker/internal/fetcher"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/PuerkitoBio/goquery"
)

// ErrFetch is wrapped by Crawl errors caused by a listing page that could not be fetched.
var ErrFetch = errors.New("listing page fetch failed")

// Crawler paginates listing pages and collects ads it has not seen before.
// It owns a private copy of the All-Ads registry that grows with every crawl.
type Crawler struct {
	fetcher fetcher.Fetcher
	filter  *exclusion.Filter
	log     *slog.Logger
	all     model.Registry
}

// New creates a crawler. known is copied, the caller's registry is never modified.
func New(f fetcher.Fetcher, filter *exclusion.Filter, known model.Registry, log *slog.Logger) *Crawler {
	return &Crawler{
		fetcher: f,
		filter:  filter,
		log:     log,
		all:     known.Clone(),
	}
}

// Ads returns a copy of the All-Ads registry including everything found so far.
func (c *Crawler) Ads() model.Registry {
	return c.all.Clone()
}

// Crawl walks the listing pages starting at seedURL and returns the ads first seen during
// this call along with the title of the first page. Pagination stops when there is no next
// page link or, with a warning, once more than maxPages pages were fetched; maxPages <= 0
// means no limit. A page that cannot be fetched fails the whole crawl and nothing found by
// it is kept.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, maxPages int) (model.Registry, string, error) {
	log := c.log.With(slog.String("seed", seedURL))
	newAds := make(model.Registry)
	thirdParty := make(model.IDSet)
	visited := make(map[string]bool)
	title := ""
	pages := 0

	rollback := func() {
		for id := range newAds {
			delete(c.all, id)
		}
	}

	for pageURL := seedURL; pageURL != ""; {
		body, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			rollback()
			return nil, "", fmt.Errorf("%w: %s: %w", ErrFetch, pageURL, err)
		}
		pages++
		visited[pageURL] = true

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			rollback()
			return nil, "", fmt.Errorf("parse listing page %s: %w", pageURL, err)
		}
		if pages == 1 {
			title = ExtractTitle(doc)
		}

		ads, pageThirdParty := extractor.Extract(doc, pageURL)
		for id := range pageThirdParty {
			thirdParty.Add(id)
		}
		found := 0
		for _, ad := range ads {
			if phrase, excluded := c.filter.Match(ad); excluded {
				log.Debug("ad excluded.", slog.String("id", ad.ID), slog.String("phrase", phrase))
				continue
			}
			if !c.isNew(ad.ID, thirdParty) {
				continue
			}
			newAds[ad.ID] = ad
			c.all[ad.ID] = ad
			found++
		}
		log.Debug("page parsed.", slog.Int("page", pages), slog.Int("ads", len(ads)),
			slog.Int("new", found), slog.Int("third_party", len(pageThirdParty)))

		if maxPages > 0 && pages > maxPages {
			log.Warn("max pages reached. Stop crawling.", slog.Int("max_pages", maxPages))
			break
		}
		next := nextPageURL(doc, pageURL)
		if visited[next] {
			log.Warn("next page was already visited. Stop crawling.", slog.String("url", next))
			break
		}
		pageURL = next
	}

	// a sponsored node seen on a later page still disqualifies an ad taken from an earlier one
	for id := range newAds {
		if thirdParty.Has(id) {
			delete(newAds, id)
			delete(c.all, id)
		}
	}
	for _, ad := range newAds {
		ad.OriginalURL = seedURL
	}
	log.Info("crawl finished.", slog.Int("pages", pages), slog.Int("new_ads", len(newAds)),
		slog.String("title", title))

	return newAds.Clone(), title, nil
}

// isNew reports whether id is neither known nor sponsored in the current crawl.
func (c *Crawler) isNew(id string, thirdParty model.IDSet) bool {
	return !c.all.Has(id) && !thirdParty.Has(id)
}

func nextPageURL(doc *goquery.Document, pageURL string) string {
	for _, sel := range []string{`a[title="Next"]`, `a[rel="next"]`, `link[rel="next"]`} {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			return extractor.ResolveURL(pageURL, href)
		}
	}
	return ""
}
