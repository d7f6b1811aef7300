// Package slugger derives URL-safe identifiers from free-text titles.
package slugger

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any run of non-alphanumeric characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify converts a string to a lowercase, ASCII-safe, URL-safe slug.
// "Livre exemple 1" -> "livre-exemple-1".
// "Éloge de l'ombre" -> "eloge-de-l-ombre".
// Deterministic and pure; an empty or fully non-alphanumeric input yields
// the empty string. Uniqueness is not guaranteed here, the lifecycle
// manager disambiguates collisions at write time.
func Slugify(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove combining marks and any remaining non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)

	// Replace runs of non-alphanumerics with a single hyphen.
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
