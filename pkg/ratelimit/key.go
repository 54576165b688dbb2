package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/publora/publora/pkg/clientip"
)

// maxKeyLength is the maximum allowed length for a guard key
// to prevent excessively long storage keys in backends like Redis.
const maxKeyLength = 64

// KeyFunc extracts a unique identifier from an HTTP request.
type KeyFunc func(*http.Request) string

// ByClientIP keys attempts on the caller's IP address.
func ByClientIP() KeyFunc {
	return func(r *http.Request) string {
		return clientip.GetIP(r)
	}
}

// Composite combines multiple key extraction functions into a single key.
// Long keys (>64 chars) are hashed to 32 hex chars using SHA256 to prevent
// storage issues while avoiding collisions.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}

		if len(parts) == 1 && len(parts[0]) <= maxKeyLength {
			return parts[0]
		}

		combined := strings.Join(parts, ":")

		if len(combined) > maxKeyLength {
			hash := sha256.Sum256([]byte(combined))
			// 128-bit hash provides sufficient collision resistance
			return hex.EncodeToString(hash[:16])
		}

		return combined
	}
}

// IdentifierKey builds the per-identifier guard key for a login attempt.
// Identifiers are normalized so "User@Example.com" and "user@example.com"
// share one budget.
func IdentifierKey(identifier string) string {
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	if len(normalized) > maxKeyLength {
		hash := sha256.Sum256([]byte(normalized))
		normalized = hex.EncodeToString(hash[:16])
	}
	return "ident:" + normalized
}
