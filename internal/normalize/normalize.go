// Package normalize implements the shared string normalization used for
// beneficiary name matching and cache keys. The same rules are applied
// when the beneficiary side table is built, so lookups stay symmetric.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Suffix removal runs after punctuation stripping, so every written
	// form (s.r.l., s'r'l, S,R,L) has already collapsed to the bare
	// token by the time this matches. Matching earlier would leave the
	// bare token for a second pass to delete, breaking idempotence.
	legalSuffixRe = regexp.MustCompile(`(?i)\b(srl|spa|snc|sas)\b`)
	punctRe       = regexp.MustCompile(`[.,;:!?'"(){}\[\]` + "`´‘’" + `]`)
	dashRe        = regexp.MustCompile(`[-–—]`)
	spaceRe       = regexp.MustCompile(`\s+`)

	// NFD + strip combining marks + NFC: "attività" -> "attivita".
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Name lowers the string, strips diacritics, drops punctuation, folds
// dashes and slashes into spaces, removes Italian legal-form suffixes
// (srl, spa, ...) and collapses whitespace.
// Idempotent: Name(Name(s)) == Name(s).
func Name(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = punctRe.ReplaceAllString(s, "")
	s = dashRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "/", " ")
	s = legalSuffixRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CacheKey is the response-cache key for a question: lower-cased and
// trimmed, nothing more. Questions differing in punctuation are cache
// distinct on purpose; see the resolver for the heavier normalization.
func CacheKey(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}
