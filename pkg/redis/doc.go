// Package redis establishes Redis connections with retry logic.
//
// The connector is used by the idempotency and rate-limit guards, which keep
// their reservation and counter state in Redis so multiple API instances share
// one view of inbound traffic.
package redis
