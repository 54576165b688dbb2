package idempotency

import "time"

// Config holds the configuration for the idempotency guard.
type Config struct {
	ReservationTTL time.Duration `env:"IDEMPOTENCY_RESERVATION_TTL" envDefault:"10m"`
	ResponseTTL    time.Duration `env:"IDEMPOTENCY_RESPONSE_TTL" envDefault:"24h"`
}
