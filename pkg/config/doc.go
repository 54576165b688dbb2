// Package config loads application configuration from environment variables
// into tagged structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is loaded once per process (missing files are fine), and
// each configuration type is parsed at most once and cached, so services can
// call Load from any package without coordinating.
//
// Usage:
//
//	type QueueConfig struct {
//	    PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// MustLoad panics on failure and is intended for configuration the process
// cannot start without.
package config
