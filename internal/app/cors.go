package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether an Origin header value matches one of the
// configured patterns. A pattern is either an exact host[:port] or a
// "*.example.com" suffix wildcard covering the apex and its subdomains.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, pattern := range patterns {
		if pattern == host {
			return true
		}
		if rest, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == rest || strings.HasSuffix(host, "."+rest) {
				return true
			}
		}
	}
	return false
}
