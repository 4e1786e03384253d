package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTag folds case, strips diacritics and collapses whitespace so
// "Café " and "cafe" compare equal.
func NormalizeTag(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// FoldedContains is a case- and accent-insensitive substring test.
func FoldedContains(haystack, needle string) bool {
	return strings.Contains(NormalizeTag(haystack), NormalizeTag(needle))
}

// TitleCase capitalises each word of a place name.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
