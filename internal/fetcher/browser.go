package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders listing pages in headless Chrome, for result pages that are built
// by scripts. A fresh browser tab is used per fetch.
type BrowserFetcher struct {
	timeout   time.Duration
	userAgent string
	log       *slog.Logger
}

func NewBrowserFetcher(cfg *config.FetcherConfig, log *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{timeout: cfg.ScrapeTimeout, userAgent: cfg.UserAgent, log: log}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	tabCtx, closeTab := chromedp.NewContext(ctx)
	defer closeTab()

	status := 0
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument &&
			resp.Response.URL == url {
			status = int(resp.Response.Status)
		}
	})

	var html string
	f.log.Debug("rendering.", slog.String("url", url))
	err := chromedp.Run(tabCtx,
		network.Enable(),
		f.headers(),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		loadUntil(url, "networkIdle"),
		outerHTML(&html),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: %d for %s", ErrStatus, status, url)
	}

	return []byte(html), nil
}

func (f *BrowserFetcher) headers() chromedp.Action {
	if f.userAgent == "" {
		return chromedp.ActionFunc(func(context.Context) error { return nil })
	}
	return network.SetExtraHTTPHeaders(network.Headers{"User-Agent": f.userAgent})
}

// loadUntil navigates to url and blocks until the page reports the lifecycle event.
func loadUntil(url, lifecycleEvent string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		reached := make(chan struct{})
		listenCtx, stop := context.WithCancel(ctx)
		defer stop()
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == lifecycleEvent {
				stop()
				select {
				case <-reached:
				default:
					close(reached)
				}
			}
		})

		if _, _, errText, err := page.Navigate(url).Do(ctx); err != nil {
			return err
		} else if errText != "" {
			return fmt.Errorf("navigate %s: %s", url, errText)
		}
		select {
		case <-reached:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func outerHTML(html *string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		root, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		*html, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
		return err
	}
}
