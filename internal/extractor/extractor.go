package extractor

import (
	"net/url"
	"strings"

	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/PuerkitoBio/goquery"
)

// The site has used two layouts. Each selector pair is tried in order, the looser one only
// when the first matches nothing.
const (
	organicSelector            = "div.search-item.regular-ad"
	organicFallbackSelector    = "div.search-item"
	thirdPartySelector         = "div.third-party"
	thirdPartyFallbackSelector = "div.search-item.showcase.top-feature"

	titleSelector       = "a.title, .title a, .title"
	priceSelector       = ".price"
	descriptionSelector = ".description"
)

var idAttrs = []string{"data-listing-id", "data-ad-id", "data-id"}

// Extract returns the organic ads of a listing page and the ids of its third-party
// (sponsored) nodes. An ad whose id is in the third-party set is never returned, even when
// its node also matches the organic selector. pageURL resolves relative links.
func Extract(doc *goquery.Document, pageURL string) ([]*model.Ad, model.IDSet) {
	thirdParty := make(model.IDSet)
	findWithFallback(doc, thirdPartySelector, thirdPartyFallbackSelector).Each(func(_ int, s *goquery.Selection) {
		if id := nodeID(s); id != "" {
			thirdParty.Add(id)
		}
	})

	ads := make([]*model.Ad, 0)
	seen := make(model.IDSet)
	findWithFallback(doc, organicSelector, organicFallbackSelector).Each(func(_ int, s *goquery.Selection) {
		ad := parseAd(s, pageURL)
		if ad == nil || thirdParty.Has(ad.ID) || seen.Has(ad.ID) {
			return
		}
		seen.Add(ad.ID)
		ads = append(ads, ad)
	})

	return ads, thirdParty
}

func findWithFallback(doc *goquery.Document, primary, fallback string) *goquery.Selection {
	if sel := doc.Find(primary); sel.Length() > 0 {
		return sel
	}
	return doc.Find(fallback)
}

func parseAd(s *goquery.Selection, pageURL string) *model.Ad {
	id := nodeID(s)
	if id == "" {
		return nil
	}
	title := s.Find(titleSelector).First()
	ad := &model.Ad{
		ID:          id,
		Title:       Text(title),
		Price:       Text(s.Find(priceSelector).First()),
		Description: Text(s.Find(descriptionSelector).First()),
		ImageURLs:   ImageURLs(s, pageURL),
	}
	link := title
	if !link.Is("a") {
		link = s.Find("a[href]").First()
	}
	if href, ok := link.Attr("href"); ok {
		ad.URL = ResolveURL(pageURL, href)
	}

	return ad
}

func nodeID(s *goquery.Selection) string {
	for _, attr := range idAttrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ImageURLs returns the absolute image urls found under s, in document order, without duplicates.
func ImageURLs(s *goquery.Selection, baseURL string) []string {
	urls := make([]string, 0)
	seen := make(map[string]bool)
	s.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			return
		}
		src = ResolveURL(baseURL, src)
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return
		}
		if !seen[src] {
			seen[src] = true
			urls = append(urls, src)
		}
	})
	return urls
}

func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	if v, ok := img.Attr("srcset"); ok {
		if fields := strings.Fields(v); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// Text returns the selection text with whitespace runs collapsed to single spaces.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// ResolveURL resolves href against base. href is returned unchanged when either fails to parse.
func ResolveURL(base, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}
