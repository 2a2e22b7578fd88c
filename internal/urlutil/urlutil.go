// Package urlutil builds the login redirect and decides which post-login
// destinations are safe to follow.
package urlutil

import (
	"net/http"
	"net/url"
	"strings"
)

// NextParam is the query parameter carrying the originally requested URL.
const NextParam = "next"

// LoginURL returns loginPath with next attached as ?next=. The value is
// percent-encoded except for unreserved characters and '/', so
// LoginURL("/auth/login/", "/add/") is "/auth/login/?next=/add/".
func LoginURL(loginPath, next string) string {
	if next == "" {
		return loginPath
	}
	sep := "?"
	if strings.Contains(loginPath, "?") {
		sep = "&"
	}
	return loginPath + sep + NextParam + "=" + escapeKeepSlash(next)
}

// SafeNext returns next when it points back into this site and fallback
// otherwise. Accepted values are local absolute paths ("/notes/") and absolute
// URLs whose origin equals the request origin; the latter are reduced to
// their path and query.
func SafeNext(r *http.Request, next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || strings.ContainsAny(next, "\\\r\n\t") {
		return fallback
	}

	u, err := url.Parse(next)
	if err != nil || u.Opaque != "" || u.User != nil {
		return fallback
	}

	if u.Scheme == "" && u.Host == "" {
		// Reject protocol-relative "//evil.example" and relative paths.
		if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
			return fallback
		}
		return next
	}

	if r == nil || OriginFromRequest(r, "") != normalizeBaseURL(u.Scheme+"://"+u.Host) {
		return fallback
	}
	local := u.EscapedPath()
	if local == "" {
		local = "/"
	}
	if strings.HasPrefix(local, "//") {
		return fallback
	}
	if u.RawQuery != "" {
		local += "?" + u.RawQuery
	}
	return local
}

// OriginFromRequest returns the request origin (scheme + host) with the provided
// fallback when request host or scheme cannot be resolved.
func OriginFromRequest(r *http.Request, fallback string) string {
	base := normalizeBaseURL(fallback)
	if r == nil {
		return base
	}

	scheme := requestScheme(r)
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return base
	}

	return normalizeBaseURL(scheme + "://" + host)
}

// BuildAbsolute builds an absolute URL from a base origin and a path.
func BuildAbsolute(base, path string) string {
	base = normalizeBaseURL(base)
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

func requestScheme(r *http.Request) string {
	proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))
	if proto != "" {
		if comma := strings.Index(proto, ","); comma >= 0 {
			proto = strings.TrimSpace(proto[:comma])
		}
		if proto == "http" || proto == "https" {
			return proto
		}
	}

	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}

func escapeKeepSlash(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
