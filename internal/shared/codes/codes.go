// Package codes generates advisory record codes of the form
// PREFIX + zero-padded numeric suffix (UHID000123, ICD0042). Codes
// are suggestions only: nothing is reserved, and the unique index on
// the target table is the authority that rejects a duplicate.
package codes

import (
	"fmt"
	"strings"
)

// Format renders a code from its parts. Suffixes wider than padWidth
// are kept whole rather than truncated.
func Format(prefix string, padWidth int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padWidth, n)
}

// SuffixPattern returns the POSIX regex matching codes with the given
// prefix and a purely numeric suffix, for use in max-suffix queries.
func SuffixPattern(prefix string) string {
	return "^" + quoteRegexMeta(prefix) + "[0-9]+$"
}

func quoteRegexMeta(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
