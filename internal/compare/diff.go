package compare

import (
	"fmt"
	"strings"
)

// PositionDiff is one differing rune position between the normalized forms
// of a database value and an index value.
type PositionDiff struct {
	Pos       int    `json:"pos"`
	DBChar    string `json:"db_char"`
	IndexChar string `json:"index_char"`
}

// DiffPositions reports the first limit differing rune positions between a
// and b. Positions past the end of the shorter string count as differences
// with the missing side rendered empty. Encoding and invisible-character
// bugs show up here when the raw values look identical to a human.
func DiffPositions(a, b string, limit int) []PositionDiff {
	ar, br := []rune(a), []rune(b)
	n := len(ar)
	if len(br) > n {
		n = len(br)
	}

	var out []PositionDiff
	for i := 0; i < n && len(out) < limit; i++ {
		var ca, cb string
		if i < len(ar) {
			ca = string(ar[i])
		}
		if i < len(br) {
			cb = string(br[i])
		}
		if ca != cb {
			out = append(out, PositionDiff{Pos: i, DBChar: ca, IndexChar: cb})
		}
	}
	return out
}

// FormatPositions renders position diffs for a mismatch message.
func FormatPositions(diffs []PositionDiff) string {
	parts := make([]string, len(diffs))
	for i, d := range diffs {
		parts[i] = fmt.Sprintf("(%d: %q vs %q)", d.Pos, d.DBChar, d.IndexChar)
	}
	return strings.Join(parts, " ")
}
