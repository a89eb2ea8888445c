package classifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IliaW/listing-alert-worker/internal/extractor"
	"github.com/IliaW/listing-alert-worker/internal/fetcher"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/PuerkitoBio/goquery"
)

const businessLabel = "business"

// Details is what the ad's own page tells about it.
type Details struct {
	ImageURLs  []string
	IsBusiness bool
}

// Inspector fetches ad detail pages. The fetcher is expected to cache, so images and
// classification for the same ad cost a single request.
type Inspector struct {
	fetcher fetcher.Fetcher
	log     *slog.Logger
}

func NewInspector(f fetcher.Fetcher, log *slog.Logger) *Inspector {
	return &Inspector{fetcher: f, log: log}
}

// Inspect fetches ad.URL and reads its images and seller type.
func (i *Inspector) Inspect(ctx context.Context, ad *model.Ad) (*Details, error) {
	if ad.URL == "" {
		return nil, fmt.Errorf("ad %s has no url", ad.ID)
	}
	i.log.Debug("inspecting ad page.", slog.String("url", ad.URL))
	body, err := i.fetcher.Fetch(ctx, ad.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch ad page %s: %w", ad.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ad page %s: %w", ad.URL, err)
	}
	d := &Details{
		ImageURLs:  extractor.ImageURLs(doc.Selection, ad.URL),
		IsBusiness: IsBusiness(doc),
	}
	i.log.Debug("ad page inspected.", slog.String("id", ad.ID), slog.Int("images", len(d.ImageURLs)),
		slog.Bool("business", d.IsBusiness))

	return d, nil
}

// Classify reports whether ad was posted by a business seller.
func (i *Inspector) Classify(ctx context.Context, ad *model.Ad) (bool, error) {
	d, err := i.Inspect(ctx, ad)
	if err != nil {
		return false, err
	}
	return d.IsBusiness, nil
}

// IsBusiness looks for a label line reading "business". Label lines are divs with a
// class such as "line-3kx9", i.e. a class whose dash-separated parts include "line".
func IsBusiness(doc *goquery.Document) bool {
	found := false
	doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isLabelLine(s.AttrOr("class", "")) {
			return true
		}
		if strings.EqualFold(strings.TrimSpace(s.Text()), businessLabel) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isLabelLine(class string) bool {
	for _, c := range strings.Fields(class) {
		for _, part := range strings.Split(c, "-") {
			if part == "line" {
				return true
			}
		}
	}
	return false
}
