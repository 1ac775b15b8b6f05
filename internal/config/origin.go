package config

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeOrigin validates a CORS origin and returns it as scheme://host[:port]
// in lowercase. A missing scheme defaults to https. Paths, queries, fragments,
// wildcards, and empty values are rejected.
func NormalizeOrigin(raw string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", fmt.Errorf("origin cannot be empty")
	}
	if strings.ContainsAny(cleaned, " \t\r\n") {
		return "", fmt.Errorf("origin cannot contain whitespace")
	}
	if strings.Contains(cleaned, "*") {
		return "", fmt.Errorf("wildcards are not allowed in allowed origins")
	}

	if !strings.Contains(cleaned, "://") {
		cleaned = "https://" + cleaned
	}
	// A single trailing slash is the root path and is tolerated.
	cleaned = strings.TrimSuffix(cleaned, "/")

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid origin format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("origin scheme must be http or https")
	}
	if u.Host == "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("origin must not include credentials, path, query, or fragment")
	}

	return u.Scheme + "://" + u.Host, nil
}
