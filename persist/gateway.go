package persist

import (
	"context"

	"github.com/nedzof/lockd.app-sub000/lockproto"
)

// Gateway is the storage boundary of the pipeline. Implementations must make
// UpsertRecord idempotent on transaction id.
type Gateway interface {
	// UpsertRecord stores the record, returning the stored record's id.
	// Storing an already-present transaction succeeds and returns the
	// existing id.
	UpsertRecord(ctx context.Context, rec *lockproto.Record) (string, error)

	// MaxProcessedHeight returns the highest confirmed block height among
	// stored records, zero when the store is empty. The engine resumes the
	// feed from here.
	MaxProcessedHeight(ctx context.Context) (uint32, error)

	// SaveFailure records a transaction that could not be processed, for
	// later inspection. Idempotent on transaction id.
	SaveFailure(ctx context.Context, txID string, procErr error, raw []byte) error

	// Close releases the gateway's resources
	Close()
}
