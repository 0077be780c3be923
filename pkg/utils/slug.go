package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile("[^a-z0-9]+")

// GenerateSlug folds accents and collapses everything else into single dashes.
func GenerateSlug(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	folded = strings.ToLower(folded)
	folded = nonSlugChars.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}
