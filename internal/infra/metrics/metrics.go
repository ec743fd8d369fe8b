package metrics

import "strings"

// norm keeps label values low-cardinality and consistent.
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
