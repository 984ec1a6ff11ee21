// Package extract pulls readable article text out of raw HTML.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre"

// Extractor implements summary.Extractor with go-readability.
type Extractor struct {
	maxBytes int
}

// New builds an Extractor. maxBytes caps the returned text; zero means no cap.
func New(maxBytes int) *Extractor {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &Extractor{maxBytes: maxBytes}
}

// Extract returns the title and paragraph text of the main article on the
// page. Paragraphs are separated by blank lines.
func (e *Extractor) Extract(pageURL string, body []byte) (summary.Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return summary.Article{}, fmt.Errorf("parse page url: %w", err)
	}
	parsed, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return summary.Article{}, fmt.Errorf("%w: %v", summary.ErrNoContent, err)
	}

	text, err := blocksText(parsed.Content)
	if err != nil {
		return summary.Article{}, err
	}
	if text == "" {
		return summary.Article{}, summary.ErrNoContent
	}

	title := collapse(parsed.Title)
	if title == "" {
		title = documentTitle(body)
	}
	return summary.Article{
		Title:   title,
		Text:    truncate(text, e.maxBytes),
		Excerpt: collapse(parsed.Excerpt),
	}, nil
}

// blocksText flattens article HTML into one paragraph per block element,
// skipping blocks that only wrap other blocks.
func blocksText(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse article html: %w", err)
	}
	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.Find(blockSelector).Length() > 0 {
			return
		}
		if text := collapse(sel.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return collapse(doc.Text()), nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

func documentTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return collapse(doc.Find("title").First().Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
