// Package summarize builds extractive summaries: sentences are ranked with
// LexRank and the best ones are kept in their original order.
package summarize

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/didasy/tldr"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

const defaultSentences = 5

// Summarizer implements summary.Summarizer.
type Summarizer struct {
	sentences int
}

// New returns a Summarizer keeping at most n sentences.
func New(n int) *Summarizer {
	if n <= 0 {
		n = defaultSentences
	}
	return &Summarizer{sentences: n}
}

// Summarize returns up to n sentences of article.Text. When the ranking
// produces nothing usable the lead sentences are returned instead.
func (s *Summarizer) Summarize(ctx context.Context, article summary.Article) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sentences := SplitSentences(article.Text)
	if len(sentences) == 0 {
		return "", summary.ErrNoContent
	}
	if len(sentences) <= s.sentences {
		return strings.Join(sentences, " "), nil
	}

	picked, err := rank(sentences, s.sentences)
	if err != nil || len(picked) == 0 {
		picked = sentences[:s.sentences]
	}
	return strings.Join(picked, " "), nil
}

// rank runs LexRank over sentences, which are split here rather than by
// tldr so paragraph breaks and abbreviations are honored. Stop words are
// left out of the sentence vectors.
func rank(sentences []string, n int) ([]string, error) {
	bag := tldr.New()
	bag.OriginalSentences = sentences
	bag.SetWordTokenizer(tokenize)
	bag.SetDictionary(dictionary(sentences))

	out, err := bag.Summarize("", n)
	if err != nil {
		return nil, err
	}
	if len(out) >= n || len(bag.Ranks) <= len(out) {
		return out, nil
	}

	// tldr falls back to a single sentence when fewer than n were ranked.
	idx := slices.Clone(bag.Ranks[:min(n, len(bag.Ranks))])
	slices.Sort(idx)
	out = make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(sentences) {
			out = append(out, sentences[i])
		}
	}
	return out, nil
}

// dictionary numbers every content word from 1, as tldr expects.
func dictionary(sentences []string) map[string]int {
	dict := make(map[string]int)
	for _, sentence := range sentences {
		for _, term := range tokenize(sentence) {
			if _, ok := dict[term]; !ok {
				dict[term] = len(dict) + 1
			}
		}
	}
	return dict
}

// tokenize lower-cases text and drops punctuation, stop words and very short words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
