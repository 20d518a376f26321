package osint

import (
	"net/url"
	"regexp"
	"strings"
)

var hostPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?([^/\s]+)`)

// ExtractHost returns the bare lowercase hostname of a feed URL with any
// leading www. removed. URLs without a scheme are parsed as http. When the
// URL cannot be parsed it falls back to a pattern match, and failing that
// to the lowercased input. It never fails.
func ExtractHost(raw string) string {
	s := strings.TrimSpace(raw)
	candidate := s
	if !strings.HasPrefix(candidate, "http") {
		candidate = "http://" + candidate
	}
	if u, err := url.Parse(candidate); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	if m := hostPattern.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1])
	}
	return strings.ToLower(s)
}
