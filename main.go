package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/IliaW/listing-alert-worker/internal/artifact"
	"github.com/IliaW/listing-alert-worker/internal/broker"
	cacheClient "github.com/IliaW/listing-alert-worker/internal/cache"
	"github.com/IliaW/listing-alert-worker/internal/classifier"
	"github.com/IliaW/listing-alert-worker/internal/crawler"
	"github.com/IliaW/listing-alert-worker/internal/delivery"
	"github.com/IliaW/listing-alert-worker/internal/exclusion"
	"github.com/IliaW/listing-alert-worker/internal/fetcher"
	"github.com/IliaW/listing-alert-worker/internal/model"
	"github.com/IliaW/listing-alert-worker/internal/notifier"
	"github.com/IliaW/listing-alert-worker/internal/persistence"
	"github.com/IliaW/listing-alert-worker/internal/registry"
	"github.com/IliaW/listing-alert-worker/internal/worker"
	"github.com/lmittmann/tint"
)

var (
	cfg   *config.Config
	log   *slog.Logger
	db    *sql.DB
	store artifact.Store
	cache cacheClient.PageCache
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg = config.MustLoad()
	log = setupLogger()
	log.Info("starting listing alert worker.", slog.String("env", cfg.Env), slog.String("version", cfg.Version))
	regCfg := cfg.RegistrySettings

	store = setupArtifactStore()
	if store != nil && regCfg.Sync {
		// Only the Sent-Ads registry is pulled, the local All-Ads file stays authoritative.
		if err := registry.Pull(ctx, store, regCfg.RemoteSentAdsPath, regCfg.SentAdsPath, log); err != nil {
			log.Error("could not download registry from remote storage.", slog.String("err", err.Error()))
		}
	}
	allAds, err := registry.Load(regCfg.AllAdsPath, log)
	if err != nil {
		log.Error("failed to load all ads registry.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	sentAds, err := registry.Load(regCfg.SentAdsPath, log)
	if err != nil {
		log.Error("failed to load sent ads registry.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("registries loaded.", slog.Int("all_ads", len(allAds)), slog.Int("sent_ads", len(sentAds)))

	if cfg.CacheSettings.Enabled() {
		mc := cacheClient.NewMemcachedClient(cfg.CacheSettings, log)
		defer mc.Close()
		cache = mc
	}
	fetcherCfg := cfg.FetcherSettings
	pageFetcher := fetcher.NewCachingFetcher(fetcher.NewPageFetcher(fetcherCfg, log), fetcherCfg.LocalCacheTtl, cache, log)
	// ad pages are fetched over plain http whatever mechanism the listing uses
	detailFetcher := fetcher.NewCachingFetcher(fetcher.NewCollyFetcher(fetcherCfg, log), fetcherCfg.LocalCacheTtl, cache, log)
	imageFetcher := fetcher.NewCollyFetcher(fetcherCfg, log)

	filter := exclusion.New(cfg.CrawlerSettings.ExcludeList)
	crawl := crawler.New(pageFetcher, filter, allAds, log)
	tg := notifier.NewTelegram(cfg.TelegramSettings.Token, log)
	pipeline := delivery.NewPipeline(classifier.NewInspector(detailFetcher, log), tg, cfg.TelegramSettings.ChatID,
		sentAds, log)
	if store != nil && cfg.ArtifactSettings.Enabled {
		pipeline.EnableArchive(store, imageFetcher, cfg.ArtifactSettings.DestinationFolder)
	}

	adWorker := &worker.AdWorker{
		Crawler:  crawl,
		Pipeline: pipeline,
		Cfg:      cfg,
		Log:      log,
	}
	if cfg.DbSettings.Enabled() {
		if db, err = persistence.Connect(ctx, cfg.DbSettings, log); err != nil {
			log.Error("failed to establish database connection.", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer closeDatabase()
		adWorker.Db = persistence.NewDeliveryRepository(db, log)
	}
	kafkaWg := &sync.WaitGroup{}
	var eventChan chan *model.DeliveryEvent
	if cfg.KafkaSettings.Enabled() {
		eventChan = make(chan *model.DeliveryEvent, 100)
		adWorker.OutputChan = eventChan
		kafkaWg.Add(1)
		go broker.NewKafkaProducer(eventChan, cfg.KafkaSettings.Producer, log, kafkaWg).Run()
	}

	allAds, sentAds, sum := adWorker.Run(ctx)
	if eventChan != nil {
		close(eventChan)
		log.Info("close eventChan.")
		kafkaWg.Wait()
	}
	log.Info("run finished.", slog.Any("summary", sum))

	// Registries are written once, after the whole run.
	if err = registry.Save(regCfg.AllAdsPath, allAds); err != nil {
		log.Error("failed to save all ads registry.", slog.String("err", err.Error()))
	}
	if err = registry.Save(regCfg.SentAdsPath, sentAds); err != nil {
		log.Error("failed to save sent ads registry.", slog.String("err", err.Error()))
	}
	if store != nil && regCfg.Sync {
		// use a fresh context, the run context may already be cancelled
		syncCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err = registry.Push(syncCtx, store, regCfg.SentAdsPath, regCfg.RemoteSentAdsPath, log); err != nil {
			log.Error("failed to upload sent ads registry.", slog.String("err", err.Error()))
		}
		if err = registry.Push(syncCtx, store, regCfg.AllAdsPath, regCfg.RemoteAllAdsPath, log); err != nil {
			log.Error("failed to upload all ads registry.", slog.String("err", err.Error()))
		}
	}
	log.Info("done!")
}

func setupArtifactStore() artifact.Store {
	artCfg := cfg.ArtifactSettings
	if !artCfg.Enabled && !cfg.RegistrySettings.Sync {
		return nil
	}
	switch strings.ToLower(artCfg.Backend) {
	case "s3":
		return artifact.NewS3Store(cfg.S3Settings, log)
	default:
		return artifact.NewLocalStore(artCfg.LocalRoot, log)
	}
}

func setupLogger() *slog.Logger {
	logger := newLogger(os.Stdout, cfg.LogType, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Debug("debug messages are enabled.")

	return logger
}

// newLogger writes JSON for log type "json" and colored text otherwise.
func newLogger(w io.Writer, logType, level string) *slog.Logger {
	replaceAttrs := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = filepath.Base(source.File)
			}
		}
		return a
	}
	if strings.ToLower(logType) == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       logLevel(level),
			ReplaceAttr: replaceAttrs}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		AddSource:   true,
		Level:       logLevel(level),
		ReplaceAttr: replaceAttrs,
		NoColor:     w != os.Stdout}))
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func closeDatabase() {
	log.Info("closing database connection.")
	if err := db.Close(); err != nil {
		log.Error("failed to close database connection.", slog.String("err", err.Error()))
	}
}
