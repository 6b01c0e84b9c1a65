// Package retry provides simple exponential backoff retry logic for
// transient failures.
//
// The feed subscriber uses it for reconnect pacing and the ingest processor
// for persistence retries. It is intentionally minimal: exponential backoff
// with optional jitter, context cancellation, and nothing else. Error
// classification is the caller's job (see the errors package).
package retry
