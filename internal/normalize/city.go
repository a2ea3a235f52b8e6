// Package normalize reduces locality spellings to a comparable form.
//
// Server responses and source files disagree on case, accents and
// prefixes ("Comune di Milano" vs "MILANO"). The normalization strategy is
// pluggable so callers can extend it without touching comparison sites.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CityNormalizer reduces a locality name to a canonical comparable form.
type CityNormalizer interface {
	Normalize(name string) string
}

// knownPrefixes are stripped from the front of a locality name.
var knownPrefixes = []string{
	"comune di ",
	"citta di ",
	"frazione di ",
	"frazione ",
	"localita ",
}

// ItalianCities is the default normalizer: case fold, diacritics removal,
// known-prefix stripping, whitespace collapse.
type ItalianCities struct {
	prefixes []string
}

// NewItalianCities returns the default strategy with the built-in prefixes.
func NewItalianCities() *ItalianCities {
	return &ItalianCities{prefixes: knownPrefixes}
}

// Normalize returns the canonical form of a city name.
func (n *ItalianCities) Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = stripDiacritics(s)

	for _, prefix := range n.prefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Same reports whether two spellings denote the same city under n.
func Same(n CityNormalizer, a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

// stripDiacritics decomposes to NFD, drops combining marks, and recomposes.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
