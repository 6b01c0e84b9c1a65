// Package worker provides a generic bounded worker pool for concurrent
// task processing.
//
// The ingest processor runs its parse-then-persist jobs on a Pool so that at
// most N transactions (default 5) are in flight at once. Submit is
// non-blocking and drops on a full queue; SubmitWait blocks for callers that
// want backpressure instead, which is what the JetStream consumer uses.
package worker
