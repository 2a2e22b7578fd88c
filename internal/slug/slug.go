// Package slug turns note titles into URL-safe ASCII slugs.
//
// Russian and Ukrainian Cyrillic is transliterated with the table below,
// other Latin letters lose their diacritics, and everything else outside
// [a-z0-9_-] is dropped.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug a note may carry.
const MaxLength = 100

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "yi", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	// Ukrainian
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// foldMarks strips combining marks after canonical decomposition: é -> e.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make returns the slug for s. The result matches ^[a-z0-9_]+(-[a-z0-9_]+)*$
// or is empty when s has nothing transliterable.
func Make(s string) string {
	// Compose first so й, ё and ї written as base + combining mark still hit
	// the table.
	s = strings.ToLower(norm.NFC.String(s))
	s = strings.ReplaceAll(s, "&", " and ")

	var translit strings.Builder
	translit.Grow(len(s))
	for _, r := range s {
		if latin, ok := cyrillic[r]; ok {
			translit.WriteString(latin)
			continue
		}
		translit.WriteRune(r)
	}

	folded, _, err := transform.String(foldMarks, translit.String())
	if err != nil {
		folded = translit.String()
	}

	var out strings.Builder
	out.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if pendingDash && out.Len() > 0 {
				out.WriteByte('-')
			}
			pendingDash = false
			out.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return out.String()
}

// Truncate cuts slug to at most n bytes without leaving a trailing dash.
// Slugs from Make are ASCII, so bytes and characters coincide.
func Truncate(slug string, n int) string {
	if len(slug) <= n {
		return slug
	}
	return strings.TrimRight(slug[:n], "-")
}
