// Package document turns raw extracted key/value pairs into transaction records.
package document

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRegex   = regexp.MustCompile(`[_\-/]+`)
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes an OCR/Textract label or value for alias lookup:
// lowercase, accents removed, separators turned into spaces, punctuation dropped,
// whitespace collapsed. It never fails; empty input yields "".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	k := strings.ToLower(raw)
	k = stripMarks(k)
	k = separatorRegex.ReplaceAllString(k, " ")
	k = punctuationRegex.ReplaceAllString(k, "")
	k = whitespaceRegex.ReplaceAllString(k, " ")
	return strings.TrimSpace(k)
}

// stripMarks decomposes s (NFD) and drops the combining marks, so "operación"
// becomes "operacion".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
