// Package compare holds the field normalization and per-field comparison
// rules for reconciling job records between the database and the search
// index. The database side is the source of truth; everything here is
// read-only over both sides.
package compare

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var wsRun = regexp.MustCompile(`\s+`)

// NormalizeValue reduces a raw field value to its canonical comparable form:
// NFC unicode form, leading/trailing whitespace trimmed, internal whitespace
// runs collapsed to a single space. Case is preserved; exact-match fields
// compare case-sensitively by policy. Idempotent.
func NormalizeValue(s string) string {
	n := norm.NFC.String(s)
	n = strings.TrimSpace(n)
	return wsRun.ReplaceAllString(n, " ")
}

// Fold returns the case-folded form of the normalized value for
// case-insensitive fields (locations, skill membership). Raw values are
// kept by callers for reporting.
func Fold(s string) string {
	return cases.Fold().String(NormalizeValue(s))
}

// IsEmpty reports whether a value normalizes to nothing.
func IsEmpty(s string) bool {
	return NormalizeValue(s) == ""
}
