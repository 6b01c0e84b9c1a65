// Package persist defines the persistence gateway the ingestion pipeline
// writes through, plus an in-memory implementation used by tests. The
// postgres subpackage provides the production implementation.
//
// The gateway contract is idempotent: upserting the same transaction twice
// yields one stored record, so replays from the message bus or the feed are
// harmless.
package persist
