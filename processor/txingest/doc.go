// Package txingest consumes raw transactions from the bus and drives each one
// through the parse-then-persist sequence.
//
// Messages arrive on a durable JetStream consumer, so restarts replay
// anything unacknowledged. Replays are harmless: the dedup ledger skips
// already-processed ids within a run, and the persistence gateway's upsert
// guarantees one stored record per transaction across runs. A transaction
// without the protocol marker is acknowledged and forgotten. Failures are
// audited through the gateway and retried until the ledger's ceiling, after
// which the message is terminated.
package txingest
