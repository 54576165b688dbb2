package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// maxKeyLength bounds the storage key to keep backend keys short.
const maxKeyLength = 96

// scopeKey builds the storage key from (method, path, caller key). Long keys
// are hashed to 32 hex chars to prevent oversized backend keys while keeping
// collisions negligible.
func scopeKey(method, path, callerKey string) string {
	combined := strings.Join([]string{method, path, callerKey}, ":")
	if len(combined) > maxKeyLength {
		hash := sha256.Sum256([]byte(combined))
		return hex.EncodeToString(hash[:16])
	}
	return combined
}
