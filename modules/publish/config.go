package publish

import "time"

// Config carries the pipeline's tunables.
type Config struct {
	SweepInterval      time.Duration `env:"PUBLISH_SWEEP_INTERVAL" envDefault:"60s"`
	SweepBatchSize     int           `env:"PUBLISH_SWEEP_BATCH_SIZE" envDefault:"100"`
	WorkerPullInterval time.Duration `env:"PUBLISH_WORKER_PULL_INTERVAL" envDefault:"1s"`
	WorkerLockTimeout  time.Duration `env:"PUBLISH_WORKER_LOCK_TIMEOUT" envDefault:"5m"`
	WorkerConcurrency  int           `env:"PUBLISH_WORKER_CONCURRENCY" envDefault:"5"`
	MaxAttempts        int           `env:"PUBLISH_MAX_ATTEMPTS" envDefault:"5"`
}
