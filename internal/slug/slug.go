// Package slug turns free-form names into URL-safe identifiers.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^\w\s-]`)
	separators   = regexp.MustCompile(`[-\s]+`)
)

// Make lower-cases s, folds accented letters to ASCII, drops anything that is
// not a letter, digit, underscore, space or hyphen, and joins words with a
// single hyphen. "Café & Co." becomes "cafe-co".
func Make(s string) string {
	s = toASCII(s)
	s = invalidChars.ReplaceAllString(strings.ToLower(s), "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// WithSuffix returns base for n == 0 and base-n otherwise.
func WithSuffix(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Truncate cuts a slug to at most n bytes and drops any separator left
// dangling at the end. Slugs are ASCII, so byte and rune counts agree.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-_")
}

func toASCII(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
