// Package scoring implements the domain risk engine: name normalization,
// string heuristics, and rescoring of persisted domain records.
package scoring

import "strings"

// Normalize returns the canonical form of a raw domain string. It lowercases,
// trims whitespace, strips a leading http:// or https:// and a leading www.
// Any path after the host is dropped. It performs no validation.
func Normalize(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return d
}
