// Package headless renders article pages in headless Chrome for sites whose
// content only appears after JavaScript runs.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

const (
	defaultNavTimeout  = 45 * time.Second
	defaultSettle      = 500 * time.Millisecond
	defaultMaxParallel = 2
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	// MaxParallel caps concurrently open tabs (2 if zero).
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	// Settle is how long to wait after the body is ready for late scripts.
	Settle time.Duration
}

// Fetcher implements summary.Fetcher with one browser process shared by
// all workers. Each fetch opens its own tab.
type Fetcher struct {
	cfg     Config
	tabs    *semaphore.Weighted
	browser context.Context
	stop    context.CancelFunc
}

// NewChromedp prepares the browser allocator. Chrome itself is launched
// lazily by the first fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, errors.New("headless: max parallel must be >= 0")
	}
	if cfg.MaxParallel == 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.DisableGPU,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	browser, stop := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:     cfg,
		tabs:    semaphore.NewWeighted(int64(cfg.MaxParallel)),
		browser: browser,
		stop:    stop,
	}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	if f.stop != nil {
		f.stop()
	}
}

// Fetch loads the article in a new tab and returns the rendered DOM. The
// status of the main document response decides success.
func (f *Fetcher) Fetch(ctx context.Context, request summary.FetchRequest) (summary.FetchResponse, error) {
	if err := f.tabs.Acquire(ctx, 1); err != nil {
		return summary.FetchResponse{}, fmt.Errorf("wait for headless tab: %w", err)
	}
	defer f.tabs.Release(1)

	tab, closeTab := chromedp.NewContext(f.browser)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, f.cfg.NavigationTimeout)
	defer cancel()
	// Tear the tab down early if the worker gives up first.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	doc := &mainDocument{}
	chromedp.ListenTarget(tab, doc.observe)

	start := time.Now()
	var html, location string
	err := chromedp.Run(tab,
		network.Enable(),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.Settle),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return summary.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}

	resp := doc.response(request.URL, location)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return summary.FetchResponse{}, &summary.StatusError{URL: request.URL, StatusCode: resp.StatusCode}
	}
	resp.Body = []byte(html)
	resp.Duration = time.Since(start)
	resp.UsedHeadless = true
	return resp, nil
}

// mainDocument records the last document response seen by a tab, which is
// the article itself once redirects have been followed.
type mainDocument struct {
	mu     sync.Mutex
	status int
	url    string
	header http.Header
}

func (d *mainDocument) observe(ev any) {
	e, ok := ev.(*network.EventResponseReceived)
	if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
		return
	}
	header := toHeader(e.Response.Headers)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = int(e.Response.Status)
	d.url = e.Response.URL
	d.header = header
}

// response falls back to the browser location, then the requested URL, and
// assumes 200 when Chrome reported no document response (cached pages).
func (d *mainDocument) response(requested, location string) summary.FetchResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp := summary.FetchResponse{
		URL:        d.url,
		StatusCode: d.status,
		Headers:    d.header,
	}
	if resp.URL == "" {
		resp.URL = location
	}
	if resp.URL == "" {
		resp.URL = requested
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	if resp.Headers == nil {
		resp.Headers = http.Header{}
	}
	return resp
}

// toHeader converts CDP headers. Chrome joins repeated headers with a
// newline.
func toHeader(h network.Headers) http.Header {
	out := make(http.Header, len(h))
	for key, value := range h {
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		for _, v := range strings.Split(s, "\n") {
			out.Add(key, v)
		}
	}
	return out
}
