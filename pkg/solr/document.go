package solr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Document is one index document with loosely-typed fields. The schema
// stores some fields as scalars and some as single-element arrays depending
// on multiValued settings, so accessors coerce values into the shapes the
// verifier needs; downstream code never touches raw JSON.
type Document map[string]json.RawMessage

// Has reports whether the field is present at all, even if null or empty.
func (d Document) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// String coerces a field to a string. Scalars format as themselves, arrays
// yield their first element, null and missing fields yield "". Values that
// cannot be interpreted yield their raw JSON text so nothing is silently
// dropped.
func (d Document) String(field string) string {
	raw, ok := d[field]
	if !ok {
		return ""
	}
	return coerceString(raw)
}

// Strings coerces a field to a string slice. Single values become a
// one-element slice; null and missing fields yield nil.
func (d Document) Strings(field string) []string {
	raw, ok := d[field]
	if !ok {
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, el := range arr {
			if s := coerceString(el); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	if s := coerceString(raw); s != "" {
		return []string{s}
	}
	return nil
}

// Int64 coerces a numeric or numeric-string field to int64.
func (d Document) Int64(field string) (int64, bool) {
	raw, ok := d[field]
	if !ok || string(raw) == "null" {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	v, err := strconv.ParseInt(strings.TrimSpace(coerceString(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return ""
		}
		return coerceString(arr[0])
	}
	return strings.TrimSpace(string(raw))
}
