package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	f, err := NewChromedp(Config{})
	require.NoError(t, err)
	t.Cleanup(f.Close)
	require.Equal(t, defaultMaxParallel, f.cfg.MaxParallel)
	require.Equal(t, defaultNavTimeout, f.cfg.NavigationTimeout)
	require.Equal(t, defaultSettle, f.cfg.Settle)
}

func TestFetchWaitsForFreeTab(t *testing.T) {
	t.Parallel()

	f, err := NewChromedp(Config{MaxParallel: 1})
	require.NoError(t, err)
	t.Cleanup(f.Close)
	require.True(t, f.tabs.TryAcquire(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, summary.FetchRequest{URL: "https://spa.example/a"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorContains(t, err, "headless tab")
}

func TestMainDocumentKeepsLastDocumentResponse(t *testing.T) {
	t.Parallel()

	doc := &mainDocument{}
	doc.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 301, URL: "https://spa.example/old"},
	})
	doc.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 404, URL: "https://cdn.example/app.js"},
	})
	doc.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  200,
			URL:     "https://spa.example/new",
			Headers: network.Headers{"Set-Cookie": "a=1\nb=2", "X-Request-ID": "abc"},
		},
	})
	doc.observe("not an event")

	resp := doc.response("https://spa.example/old", "https://spa.example/new#top")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://spa.example/new", resp.URL)
	require.Equal(t, []string{"a=1", "b=2"}, resp.Headers.Values("Set-Cookie"))
	require.Equal(t, "abc", resp.Headers.Get("X-Request-ID"))
}

func TestMainDocumentFallbacks(t *testing.T) {
	t.Parallel()

	resp := (&mainDocument{}).response("https://spa.example/a", "https://spa.example/b")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://spa.example/b", resp.URL)
	require.NotNil(t, resp.Headers)

	resp = (&mainDocument{}).response("https://spa.example/a", "")
	require.Equal(t, "https://spa.example/a", resp.URL)
}

func TestToHeaderStringifiesValues(t *testing.T) {
	t.Parallel()

	h := toHeader(network.Headers{"Content-Length": 42, "Content-Type": "text/html"})
	require.Equal(t, "42", h.Get("Content-Length"))
	require.Equal(t, "text/html", h.Get("Content-Type"))
}
