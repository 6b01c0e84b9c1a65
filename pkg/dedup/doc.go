// Package dedup provides the bounded in-memory transaction ledger that
// prevents reprocessing of already-handled transaction ids.
//
// The ledger records one entry per transaction id with its outcome and
// failure count. When the ledger exceeds its bound it evicts the oldest 20%
// of entries by insertion order (deliberately not LRU: a recently re-looked-up
// old id is still old). The ledger is advisory and in-process only; the
// persistence gateway's upsert-by-id contract guarantees idempotency across
// restarts.
package dedup
