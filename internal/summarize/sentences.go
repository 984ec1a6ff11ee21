package summarize

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {}, "st": {},
	"vs": {}, "etc": {}, "inc": {}, "ltd": {}, "co": {}, "corp": {}, "no": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {}, "aug": {},
	"sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {}, "e.g": {}, "i.e": {},
	"u.s": {}, "u.k": {},
}

// SplitSentences breaks text into trimmed sentences. Paragraph breaks always
// end a sentence; '.', '!' and '?' end one when followed by whitespace and
// the preceding word is not a known abbreviation or an initial.
func SplitSentences(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		out = append(out, splitParagraph(para)...)
	}
	return out
}

func splitParagraph(para string) []string {
	runes := []rune(strings.Join(strings.Fields(para), " "))
	var (
		out   []string
		start int
	)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// absorb runs like "?!" or "..." and closing quotes/brackets
		end := i + 1
		for end < len(runes) && strings.ContainsRune(".!?\"')]”’", runes[end]) {
			end++
		}
		if end < len(runes) && runes[end] != ' ' {
			i = end - 1
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			i = end - 1
			continue
		}
		if end < len(runes) && end+1 < len(runes) && unicode.IsLower(runes[end+1]) {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isAbbreviation(before []rune) bool {
	text := string(before)
	idx := strings.LastIndexAny(text, " (\"")
	word := strings.ToLower(text[idx+1:])
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}
	_, ok := abbreviations[word]
	return ok
}
