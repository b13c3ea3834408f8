// Package metadata extracts client IP and User-Agent early in the chain so
// audit events carry them regardless of which interceptor fires.
package metadata

import (
	"net/http"
	"strings"

	"chronicle/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and User-Agent from the
// request and adds them to the context for handlers and the audit pipeline.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load
// balancers. Header priority: CDN headers first, then reverse-proxy headers,
// then the first hop of X-Forwarded-For, then the transport remote address.
func ClientIPFromRequest(r *http.Request) string {
	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return normalizeIP(strings.TrimSpace(cf))
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return normalizeIP(strings.TrimSpace(xri))
	}

	if xci := r.Header.Get("X-Client-IP"); xci != "" {
		return normalizeIP(strings.TrimSpace(xci))
	}

	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return normalizeIP(strings.TrimSpace(xff[:idx]))
		}
		return normalizeIP(strings.TrimSpace(xff))
	}

	// RemoteAddr is "ip:port" for IPv4 and "[::1]:port" for IPv6.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return normalizeIP(addr[:idx])
		}
		return normalizeIP(addr)
	}

	return ""
}

// normalizeIP collapses IPv6 loopback forms to the IPv4 loopback so records
// filter consistently across dual-stack listeners.
func normalizeIP(ip string) string {
	ip = strings.Trim(ip, "[]")
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}
