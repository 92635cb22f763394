package template

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minKeywordRunes is the shortest token kept as a search keyword.
const minKeywordRunes = 3

// DeriveKeywords lowercases the joined parts, strips everything except letters,
// digits and whitespace, and returns the distinct tokens of at least three
// runes in first-seen order.
func DeriveKeywords(parts ...string) []string {
	// A Caser is stateful and must not be shared between goroutines.
	text := cases.Lower(language.German).String(strings.Join(parts, " "))

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) >= minKeywordRunes {
			tokens = append(tokens, tok)
		}
	}
	return Dedupe(tokens)
}

// Dedupe returns the distinct non-blank values in first-seen order. The
// result is never nil.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
