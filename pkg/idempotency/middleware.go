package idempotency

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// HeaderKey is the request header carrying the caller-supplied key.
const HeaderKey = "Idempotency-Key"

// HeaderReplay marks a response that was replayed from the cache.
const HeaderReplay = "X-Idempotent-Replay"

// MiddlewareOption configures middleware behavior.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	reservationTTL time.Duration
	responseTTL    time.Duration
	logger         *slog.Logger
}

// WithReservationTTL sets how long a scope key stays reserved while the
// original request is in flight.
func WithReservationTTL(ttl time.Duration) MiddlewareOption {
	return func(c *middlewareConfig) {
		if ttl > 0 {
			c.reservationTTL = ttl
		}
	}
}

// WithResponseTTL sets how long a completed response is replayable.
func WithResponseTTL(ttl time.Duration) MiddlewareOption {
	return func(c *middlewareConfig) {
		if ttl > 0 {
			c.responseTTL = ttl
		}
	}
}

// WithLogger sets the logger for guard-internal failures.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Middleware creates HTTP middleware that deduplicates POST requests bearing
// an Idempotency-Key header. Requests without the header, and non-POST
// requests, pass through untouched.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		panic("idempotency.Middleware: store is required")
	}

	cfg := &middlewareConfig{
		reservationTTL: 10 * time.Minute,
		responseTTL:    24 * time.Hour,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			callerKey := r.Header.Get(HeaderKey)
			if callerKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := scopeKey(r.Method, r.URL.Path, callerKey)
			ctx := r.Context()

			// Completed original: replay the cached response verbatim.
			if cached, err := store.GetResponse(ctx, key); err == nil {
				replay(w, cached)
				return
			} else if !errors.Is(err, ErrKeyNotFound) {
				// Fail closed: a guard that cannot verify uniqueness must not
				// let a potential duplicate write through.
				cfg.logger.Error("idempotency store unavailable",
					slog.String("key", key),
					slog.String("error", err.Error()))
				conflict(w)
				return
			}

			reserved, err := store.Reserve(ctx, key, cfg.reservationTTL)
			if err != nil {
				cfg.logger.Error("idempotency reservation failed",
					slog.String("key", key),
					slog.String("error", err.Error()))
				conflict(w)
				return
			}
			if !reserved {
				// The original request is still in flight.
				conflict(w)
				return
			}

			rec := newRecorder(w)
			next.ServeHTTP(rec, r)

			// Server errors are not cached: releasing the reservation lets
			// the client retry with the same key.
			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(ctx, key); err != nil {
					cfg.logger.Error("failed to release idempotency key",
						slog.String("key", key),
						slog.String("error", err.Error()))
				}
				return
			}

			resp := &Response{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.SaveResponse(ctx, key, resp, cfg.responseTTL); err != nil {
				// The write already happened; losing the cache only costs a
				// conflict on the next duplicate, so log and move on.
				cfg.logger.Error("failed to cache idempotent response",
					slog.String("key", key),
					slog.String("error", err.Error()))
			}
		})
	}
}

func replay(w http.ResponseWriter, cached *Response) {
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set(HeaderReplay, "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}

func conflict(w http.ResponseWriter) {
	http.Error(w, "request with this idempotency key is already in progress", http.StatusConflict)
}

// recorder captures the response while streaming it to the client.
type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
