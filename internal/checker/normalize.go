package checker

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`(?i)https?://`)

// NormalizeDomain strips URL schemes and trailing slashes from a raw domain.
// Host case is preserved and nothing else is validated.
func NormalizeDomain(raw string) string {
	domain := raw
	for {
		stripped := schemePattern.ReplaceAllString(domain, "")
		if stripped == domain {
			break
		}
		domain = stripped
	}
	return strings.TrimRight(domain, "/")
}
