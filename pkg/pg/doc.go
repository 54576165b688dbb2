// Package pg provides the PostgreSQL layer: pooled connections via pgx/v5,
// schema migrations via goose/v3, health checks, and common error helpers.
//
// Postgres is the system of record for schedules, publish jobs, and dead
// letters. Connect retries with a linear backoff so that service and database
// restarts do not have to be ordered.
package pg
