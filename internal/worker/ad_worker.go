package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/IliaW/listing-alert-worker/internal/crawler"
	"github.com/IliaW/listing-alert-worker/internal/delivery"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/IliaW/listing-alert-worker/internal/persistence"
)

// AdWorker runs one pass: crawl every seed, then deliver every ad that was never sent.
// Db and OutputChan are optional.
type AdWorker struct {
	Crawler    *crawler.Crawler
	Pipeline   *delivery.Pipeline
	Cfg        *config.Config
	Log        *slog.Logger
	Db         persistence.DeliveryStorage
	OutputChan chan<- *model.DeliveryEvent
}

type Summary struct {
	Seeds        int
	FailedSeeds  int
	NewAds       int
	Candidates   int
	Sent         int
	SkippedBiz   int
	Failed       int
	Archived     int
	AllAdsTotal  int
	SentAdsTotal int
}

// Run returns the updated All-Ads and Sent-Ads registries. Failures of single seeds or ads
// are logged and left for the next run.
func (w *AdWorker) Run(ctx context.Context) (model.Registry, model.Registry, Summary) {
	var sum Summary
	crawlerCfg := w.Cfg.CrawlerSettings

	for _, seed := range crawlerCfg.SeedURLs {
		sum.Seeds++
		newAds, title, err := w.Crawler.Crawl(ctx, seed, crawlerCfg.MaxPages)
		if err != nil {
			sum.FailedSeeds++
			w.Log.Error("crawling failed.", slog.String("seed", seed), slog.String("err", err.Error()))
			continue
		}
		sum.NewAds += len(newAds)
		w.Log.Info("new ads found.", slog.String("search", title), slog.Int("count", len(newAds)))
	}

	all := w.Crawler.Ads()
	candidates := all.Unsent(w.Pipeline.Sent())
	sum.Candidates = len(candidates)
	w.Log.Info("ads to deliver.", slog.Int("count", len(candidates)))

	for _, ad := range candidates {
		if ctx.Err() != nil {
			w.Log.Warn("delivery interrupted. Remaining ads are left for the next run.")
			break
		}
		res := w.Pipeline.Deliver(ctx, ad, crawlerCfg.IgnoreBusinessAds)
		switch res.Status {
		case model.Sent:
			sum.Sent++
		case model.SkippedBusiness:
			sum.SkippedBiz++
		case model.Failed:
			sum.Failed++
		}
		sum.Archived += w.Pipeline.Archive(ctx, ad)
		w.record(ad, res)
	}

	sent := w.Pipeline.Sent()
	sum.AllAdsTotal = len(all)
	sum.SentAdsTotal = len(sent)

	return all, sent, sum
}

func (w *AdWorker) record(ad *model.Ad, res model.Result) {
	if w.Db == nil && w.OutputChan == nil {
		return
	}
	event := model.NewDeliveryEvent(ad, res, w.Cfg.Version, time.Now())
	if w.Db != nil {
		w.Db.Save(event) // Save result to database
	}
	if w.OutputChan != nil {
		w.OutputChan <- event // Send the result to kafka producer
	}
}
