// Package isbn normalizes book identifiers before lookup and uniqueness checks.
package isbn

import (
	"strings"
	"unicode"

	"github.com/justyntemme/librarian/internal/apperr"
)

const urnPrefix = "urn:isbn:"

// Normalize removes whitespace and hyphens, strips a urn:isbn: prefix and
// upper-cases the check character. The result contains only digits and X.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= len(urnPrefix) && strings.EqualFold(s[:len(urnPrefix)], urnPrefix) {
		s = s[len(urnPrefix):]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '-' || unicode.IsSpace(r):
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		default:
			return "", apperr.Newf(apperr.InvalidIdentifier, "identifier %q contains invalid character %q", raw, r)
		}
	}

	if b.Len() == 0 {
		return "", apperr.New(apperr.InvalidIdentifier, "identifier is required")
	}
	return b.String(), nil
}
