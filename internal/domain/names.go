package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the search key for a display name: NFKC-normalized
// (so full-width "ＴＡＲＯ" and half-width "TARO" coincide), case-folded and
// trimmed.
func NormalizeName(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}
