package chain

import "time"

// Tx is one transaction as observed from the feed. Immutable once built.
type Tx struct {
	// ID is the content-addressed transaction identifier (hex txid)
	ID string

	// BlockHeight is the confirming block height; meaningful only when
	// Confirmed is true
	BlockHeight uint32
	Confirmed   bool

	// BlockTime is the confirming block's timestamp (or first-seen time for
	// unconfirmed transactions)
	BlockTime time.Time

	// Sender is the best-effort author address taken from the first input
	Sender string

	// Raw holds the serialized transaction bytes when the provider supplied
	// them
	Raw []byte

	// OutputScripts holds the provider's pre-decoded output scripts, used
	// when Raw is absent or undecodable
	OutputScripts [][]byte
}
