// Package collyfetcher implements summary.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher downloads one article page per call. Every call clones a shared
// collector so callbacks never leak between articles while the HTTP
// transport and the robots.txt cache are reused.
type Fetcher struct {
	collector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector()
	c.WithTransport(newRobotsProbe(newHTTPTransport()))
	c.SetRequestTimeout(cfg.Timeout)
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	// Error statuses are delivered to OnResponse and classified in Fetch.
	c.ParseHTTPErrorResponse = true
	c.AllowURLRevisit = true
	c.DetectCharset = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Fetcher{collector: c}
}

// page is filled in by the collector callbacks of a single visit.
type page struct {
	resp summary.FetchResponse
	err  error
}

// Fetch executes a single HTTP GET. Non-2xx responses are reported as
// *summary.StatusError and robots.txt refusals as summary.ErrRobotsDisallowed.
func (f *Fetcher) Fetch(ctx context.Context, request summary.FetchRequest) (summary.FetchResponse, error) {
	var p page
	c := f.collector.Clone()
	attach(c, &p, time.Now())

	done := make(chan error, 1)
	go func() { done <- c.Visit(request.URL) }()

	select {
	case <-ctx.Done():
		return summary.FetchResponse{}, fmt.Errorf("fetch %s: %w", request.URL, ctx.Err())
	case err := <-done:
		if err == nil {
			err = p.err
		}
		if err != nil {
			return summary.FetchResponse{}, classify(request.URL, err)
		}
	}
	if p.resp.StatusCode < 200 || p.resp.StatusCode > 299 {
		return summary.FetchResponse{}, &summary.StatusError{URL: request.URL, StatusCode: p.resp.StatusCode}
	}
	return p.resp, nil
}

func attach(c *colly.Collector, p *page, start time.Time) {
	c.OnResponse(func(r *colly.Response) {
		p.resp = toFetchResponse(r, start)
	})
	c.OnError(func(_ *colly.Response, err error) {
		p.err = err
	})
}

func toFetchResponse(r *colly.Response, start time.Time) summary.FetchResponse {
	resp := summary.FetchResponse{
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(start),
	}
	if r.Request != nil && r.Request.URL != nil {
		resp.URL = r.Request.URL.String()
	}
	if r.Headers != nil {
		resp.Headers = r.Headers.Clone()
	}
	return resp
}

func classify(rawURL string, err error) error {
	if errors.Is(err, colly.ErrRobotsTxtBlocked) {
		return fmt.Errorf("fetch %s: %w", rawURL, summary.ErrRobotsDisallowed)
	}
	return fmt.Errorf("fetch %s: %w", rawURL, err)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
}
