package collyfetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/article-summaries/internal/metrics"
)

const allowAllRobots = "User-agent: *\nAllow: /\n"

// robotsProbe wraps the fetch transport. A robots.txt probe that times out
// is retried with doubling delays; if the host still does not answer, an
// allow-all file is served so the article request can go ahead. All other
// requests pass straight through.
type robotsProbe struct {
	next     http.RoundTripper
	attempts int
	delay    time.Duration
}

func newRobotsProbe(next http.RoundTripper) *robotsProbe {
	return &robotsProbe{next: next, attempts: 4, delay: 250 * time.Millisecond}
}

func (p *robotsProbe) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || !strings.EqualFold(req.URL.Path, "/robots.txt") {
		return p.next.RoundTrip(req)
	}

	delay := p.delay
	for attempt := 1; ; attempt++ {
		resp, err := p.next.RoundTrip(req.Clone(req.Context()))
		switch {
		case err == nil:
			return resp, nil
		case !timedOut(err):
			return nil, err
		case attempt >= p.attempts:
			metrics.ObserveRobotsFallback()
			return allowAll(req), nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "handshake timeout")
}

func allowAll(req *http.Request) *http.Response {
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"text/plain"}},
		Body:          io.NopCloser(strings.NewReader(allowAllRobots)),
		ContentLength: int64(len(allowAllRobots)),
		Request:       req,
	}
}
