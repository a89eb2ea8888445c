package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/IliaW/listing-alert-worker/internal/artifact"
	"github.com/IliaW/listing-alert-worker/internal/classifier"
	"github.com/IliaW/listing-alert-worker/internal/fetcher"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/IliaW/listing-alert-worker/internal/notifier"
)

// MaxImages is the number of images attached to a notification.
const MaxImages = 4

type Inspector interface {
	Inspect(ctx context.Context, ad *model.Ad) (*classifier.Details, error)
}

// Pipeline delivers ads to the notification channel one at a time and keeps a private
// working copy of the Sent-Ads registry.
type Pipeline struct {
	inspector   Inspector
	notifier    notifier.Notifier
	target      int64
	sent        model.Registry
	log         *slog.Logger
	now         func() time.Time
	store       artifact.Store
	images      fetcher.Fetcher
	destination string
}

// NewPipeline creates a pipeline. sent is copied, the caller's registry is never modified.
func NewPipeline(inspector Inspector, n notifier.Notifier, target int64, sent model.Registry,
	log *slog.Logger) *Pipeline {
	return &Pipeline{
		inspector: inspector,
		notifier:  n,
		target:    target,
		sent:      sent.Clone(),
		log:       log,
		now:       time.Now,
	}
}

// EnableArchive turns on image archival into store under destination/<ad id>/.
func (p *Pipeline) EnableArchive(store artifact.Store, images fetcher.Fetcher, destination string) {
	p.store = store
	p.images = images
	p.destination = destination
}

// Sent returns a copy of the Sent-Ads registry.
func (p *Pipeline) Sent() model.Registry {
	return p.sent.Clone()
}

// Deliver classifies ad and sends it. Business ads are not sent when ignoreBusinessAds is
// set but are still recorded as handled. A failed ad is left out of the Sent-Ads registry so
// the next run retries it. Deliver records the detail page findings on ad.
func (p *Pipeline) Deliver(ctx context.Context, ad *model.Ad, ignoreBusinessAds bool) model.Result {
	log := p.log.With(slog.String("id", ad.ID), slog.String("url", ad.URL))
	res := model.Result{AdID: ad.ID}

	details, err := p.inspector.Inspect(ctx, ad)
	if err != nil {
		log.Error("failed to inspect ad.", slog.String("err", err.Error()))
		res.Status, res.Err = model.Failed, err
		return res
	}
	isBusiness := details.IsBusiness
	ad.IsBusiness = &isBusiness
	if len(details.ImageURLs) > 0 {
		ad.ImageURLs = details.ImageURLs
	}

	if isBusiness && ignoreBusinessAds {
		log.Info("skipping business ad.")
		p.markSent(ad)
		res.Status = model.SkippedBusiness
		return res
	}

	images := ad.ImageURLs
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}
	if err = p.send(ctx, ad, images); err != nil {
		log.Error("failed to send ad.", slog.String("err", err.Error()))
		res.Status, res.Err = model.Failed, err
		return res
	}
	p.markSent(ad)
	log.Info("ad sent.", slog.Int("images", len(images)))
	res.Status = model.Sent

	return res
}

func (p *Pipeline) send(ctx context.Context, ad *model.Ad, images []string) error {
	caption := ad.Caption()
	if len(images) == 0 {
		return p.notifier.SendMessage(ctx, p.target, caption)
	}
	items := make([]notifier.MediaItem, len(images))
	for i, url := range images {
		items[i].URL = url
	}
	items[0].Caption = caption

	return p.notifier.SendMediaGroup(ctx, p.target, items)
}

func (p *Pipeline) markSent(ad *model.Ad) {
	now := p.now()
	ad.TimeSent = &now
	p.sent[ad.ID] = ad.Clone()
}
