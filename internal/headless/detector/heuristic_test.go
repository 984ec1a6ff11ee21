package detector

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

func TestHeuristic_ShouldRender(t *testing.T) {
	t.Parallel()

	article := "<html><body><article><p>" + strings.Repeat("Plain server rendered text. ", 200) + "</p></article></body></html>"
	ssrNext := `<html><body><div id="__next"><article><p>` + strings.Repeat("Hydrated story text. ", 200) + `</p></article></div></body></html>`

	tests := []struct {
		name      string
		threshold int
		body      string
		status    int
		headless  bool
		want      bool
	}{
		{name: "empty body", body: "  \n", want: true},
		{name: "next.js shell", body: `<html><body><div id="__next"></div><script src="/_next/app.js"></script></body></html>`, want: true},
		{name: "angular shell", body: `<html><body><app-root ng-version="17.0.0"></app-root></body></html>`, want: true},
		{name: "script heavy", body: `<html><body><p>t</p><script>window.__STATE__ = {"story": "loading"};</script></body></html>`, want: true},
		{name: "noscript notice", body: `<html><body><noscript>Please enable JavaScript to read this story.</noscript><p>Loading</p></body></html>`, want: true},
		{name: "short static page", body: `<html><body><p>Short note with no scripts.</p></body></html>`, want: false},
		{name: "server rendered article", body: article, want: false},
		{name: "server rendered next.js", body: ssrNext, want: false},
		{name: "low threshold lets thin page pass", threshold: 1, body: `<html><body><div id="app">x</div></body></html>`, want: false},
		{name: "non 200", status: http.StatusNotFound, body: "not found", want: false},
		{name: "already rendered", headless: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status := tt.status
			if status == 0 {
				status = http.StatusOK
			}
			resp := summary.FetchResponse{StatusCode: status, Body: []byte(tt.body), UsedHeadless: tt.headless}
			require.Equal(t, tt.want, NewHeuristic(tt.threshold).ShouldRender(resp))
		})
	}
}

func TestInspectIgnoresScriptAndStyleText(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><head><style>p{color:red}</style></head><body><p>Hello   world</p><script>var x = 1;</script></body></html>`))
	require.NoError(t, err)

	p := inspect(doc)
	require.Equal(t, len("Hello world"), p.textLen)
	require.Equal(t, len("var x = 1;"), p.scriptLen)
	require.False(t, p.hasMountPoint)
	require.False(t, p.asksForJS)
}

func TestNewHeuristicDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2048, NewHeuristic(0).TextThreshold)
	require.Equal(t, 10, NewHeuristic(10).TextThreshold)
}
