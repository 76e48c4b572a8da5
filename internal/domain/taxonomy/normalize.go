package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize maps a raw rubro identifier to its canonical lookup form:
// diacritics are folded, surrounding whitespace is trimmed, the result is
// uppercased, and internal whitespace runs collapse to single hyphens.
// "  módulo líder " and "MODULO-LIDER" normalize to the same key.
func Normalize(raw string) string {
	folded := foldDiacritics(raw)
	upper := strings.ToUpper(strings.TrimSpace(folded))
	return strings.Join(strings.Fields(upper), "-")
}

// foldDiacritics strips combining marks so accented and unaccented
// spellings of the same identifier compare equal. The chain is built per
// call because transform chains carry internal buffers and are not safe
// for concurrent use.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
