package utils

import "strings"

// NormalizeUsername lowercases raw and keeps only a-z, 0-9 and underscore.
func NormalizeUsername(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
