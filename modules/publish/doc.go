// Package publish implements the scheduled-publish delivery pipeline:
// a sweeper that discovers due schedules and enqueues publish jobs with
// deterministic identity, platform publishers for the supported
// providers, the job handler that drives delivery with provider-aware
// retries, and the recorder that writes terminal outcomes back to the
// schedule store.
package publish
