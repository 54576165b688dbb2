// Package idempotency deduplicates mutating HTTP requests by a caller-supplied
// Idempotency-Key header.
//
// The guard scopes each key to (method, path, key) so the same key may be
// reused across endpoints. On first sight the scope key is reserved atomically
// with a short TTL; the request is handled normally and its final response is
// cached under a longer TTL. A repeat request within the TTL replays the
// cached (status, body) verbatim with an X-Idempotent-Replay marker header.
// A repeat that arrives while the original is still in flight receives
// 409 Conflict: the underlying operation is never executed twice concurrently.
//
// The guard fails closed: if the backing store is unreachable the request is
// rejected with a conflict response rather than risking a duplicate write.
// Only POST requests are guarded; read-only calls bypass the middleware.
package idempotency
