// Package domains normalizes URLs to bare domains and keeps the
// blacklist/whitelist sets that short-circuit classification.
package domains

import (
	"net"
	"net/url"
	"strings"
)

// Normalize reduces a URL or host to its lower-cased domain with any
// leading "www." labels removed. Scheme-less input such as "facebook.com/x"
// is parsed as if it were http. IPv6 hosts keep their brackets, so
// "http://[::1]:80/" and "::1" both become "[::1]". Input that cannot be
// parsed falls back to the raw, lower-cased string. Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if ip := net.ParseIP(s); ip != nil && strings.Contains(s, ":") {
		return "[" + s + "]"
	}

	host := hostOf(s)
	if host == "" {
		host = s
	}
	for strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}

// hostOf extracts the hostname, or "" when s is not a parseable URL.
// Hostnames containing a colon are IPv6 literals and are re-bracketed.
func hostOf(s string) string {
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	h := u.Hostname()
	if strings.Contains(h, ":") {
		return "[" + h + "]"
	}
	return h
}
