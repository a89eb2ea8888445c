package model

import (
	"sort"
	"time"
)

// Ad is one listing. ID is assigned by the site and is stable across runs.
type Ad struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       string     `json:"price"`
	URL         string     `json:"url"`
	OriginalURL string     `json:"originalUrl,omitempty"`
	ImageURLs   []string   `json:"imageUrls"`
	IsBusiness  *bool      `json:"isBusiness,omitempty"`
	TimeSent    *time.Time `json:"timeSent,omitempty"`
}

// Clone returns a deep copy, so registries never share Ad values.
func (a *Ad) Clone() *Ad {
	c := *a
	if a.ImageURLs != nil {
		c.ImageURLs = append([]string(nil), a.ImageURLs...)
	}
	if a.IsBusiness != nil {
		b := *a.IsBusiness
		c.IsBusiness = &b
	}
	if a.TimeSent != nil {
		t := *a.TimeSent
		c.TimeSent = &t
	}
	return &c
}

// Caption is the text attached to a notification about the ad.
func (a *Ad) Caption() string {
	return a.Title + " - " + a.Price + " - " + a.URL
}

// Registry maps ad id to ad. Used for both the All-Ads and the Sent-Ads registries.
type Registry map[string]*Ad

// Clone returns a private working copy of the registry.
func (r Registry) Clone() Registry {
	c := make(Registry, len(r))
	for id, ad := range r {
		c[id] = ad.Clone()
	}
	return c
}

// Has reports whether id is present.
func (r Registry) Has(id string) bool {
	_, ok := r[id]
	return ok
}

// IDs returns the registry keys in ascending order.
func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unsent returns ads present in r but not in sent, ordered by id.
func (r Registry) Unsent(sent Registry) []*Ad {
	ads := make([]*Ad, 0)
	for _, id := range r.IDs() {
		if !sent.Has(id) {
			ads = append(ads, r[id])
		}
	}
	return ads
}

// Merge copies every ad of other into r, replacing entries with the same id.
func (r Registry) Merge(other Registry) {
	for id, ad := range other {
		r[id] = ad.Clone()
	}
}

// IDSet is a set of ad ids.
type IDSet map[string]struct{}

func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
