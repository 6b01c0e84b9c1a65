// Package errors provides standardized error handling for the lockd.app
// ingestion pipeline. Errors are classified as transient (retryable),
// invalid (bad input, skip or record), or fatal (surface to the supervisor),
// and helpers wrap errors with consistent "component.method: action failed"
// context.
package errors
