// Package api is the inbound write surface: schedule creation and
// cancellation behind the idempotency guard, login behind the lockout
// guard, and health reporting. All endpoints speak JSON.
package api
