// Package textutil provides the unicode normalization helpers used by
// the parser and the suggest index.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NFC returns the trimmed NFC form of s. Lemmas are stored in this form.
func NFC(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Fold lowercases s and strips diacritic marks, e.g. "Élève" -> "eleve".
// Used for prefix suggestions so "ecole" matches "école".
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
