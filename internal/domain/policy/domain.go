package policy

import (
	"net/url"
	"strings"
)

// ExtractDomain normalizes user input for the exemption list. A bare domain
// is lowercased; a URL, with or without scheme, yields its lowercased hostname.
func ExtractDomain(input string) string {
	input = strings.TrimSpace(input)
	if !strings.ContainsAny(input, "/:") {
		return strings.ToLower(input)
	}

	raw := input
	if !strings.HasPrefix(strings.ToLower(raw), "http") {
		raw = "https://" + raw
	}
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}

	cleaned := strings.ToLower(input)
	cleaned = strings.TrimPrefix(cleaned, "http://")
	cleaned = strings.TrimPrefix(cleaned, "https://")
	if i := strings.IndexByte(cleaned, '/'); i >= 0 {
		cleaned = cleaned[:i]
	}
	return cleaned
}
