// Package clientip resolves the originating client address of an HTTP
// request, looking through the proxy headers this service sits behind
// before falling back to the socket address. The resolved IP keys the
// login throttle, so an unparseable value is dropped rather than trusted.
package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Proxy headers consulted in order. X-Forwarded-For may carry a chain;
// the first parseable hop wins.
var proxyHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// GetIP resolves the client IP of the request. It returns a normalized
// textual address, or the empty string when nothing parseable is found.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		raw := r.Header.Get(header)
		if raw == "" {
			continue
		}
		for candidate := range strings.SplitSeq(raw, ",") {
			if ip := normalize(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests.
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

func normalize(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

// SetIPToContext stores the resolved IP on the context.
func SetIPToContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// GetIPFromContext returns the IP stored by Middleware, or "".
func GetIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware resolves the client IP once per request and stores it on the
// request context for downstream handlers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetIPToContext(r.Context(), GetIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
