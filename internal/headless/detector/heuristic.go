// Package detector decides when an article page is a client-rendered shell
// that must be loaded in headless Chrome before its text can be extracted.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

const defaultTextThreshold = 2048

// mountPoints are the empty root elements client-side frameworks render into.
const mountPoints = "#root, #app, #__next, #__nuxt, [data-reactroot], [ng-version]"

var jsRequiredNotices = []string{
	"enable javascript",
	"javascript is required",
	"javascript is disabled",
}

// Heuristic flags pages whose visible text is thin and that show signs of
// client-side rendering.
type Heuristic struct {
	// TextThreshold is the visible text length, in bytes, below which a page
	// is considered thin.
	TextThreshold int
}

// NewHeuristic creates a detector; threshold defaults to 2048 when zero.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultTextThreshold
	}
	return &Heuristic{TextThreshold: threshold}
}

// ShouldRender reports whether the static fetch likely missed the article.
func (h *Heuristic) ShouldRender(resp summary.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK || resp.UsedHeadless {
		return false
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return false
	}

	p := inspect(doc)
	if p.textLen >= h.TextThreshold {
		return false
	}
	switch {
	case p.hasMountPoint:
		return true
	case p.scriptLen > p.textLen:
		return true
	default:
		return p.asksForJS
	}
}

type profile struct {
	textLen       int
	scriptLen     int
	hasMountPoint bool
	asksForJS     bool
}

func inspect(doc *goquery.Document) profile {
	var p profile
	p.hasMountPoint = doc.Find(mountPoints).Length() > 0

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		p.scriptLen += len(s.Text())
		// An external bundle counts as at least a screenful of code.
		if _, ok := s.Attr("src"); ok {
			p.scriptLen += 256
		}
	})

	notice := strings.ToLower(doc.Find("noscript").Text())
	for _, n := range jsRequiredNotices {
		if strings.Contains(notice, n) {
			p.asksForJS = true
			break
		}
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	p.textLen = len(strings.Join(strings.Fields(body.Text()), " "))
	return p
}
