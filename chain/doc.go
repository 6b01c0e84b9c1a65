// Package chain models observed transactions and extracts the ordered data
// items carried in their null-data outputs.
//
// Extraction tries three strategies in order, each only if the previous one
// yielded nothing: byte-level decoding of the raw transaction, the feed
// provider's pre-decoded output scripts, and finally a raw-byte scan for the
// OP_FALSE OP_RETURN marker. An empty result is not an error; it simply means
// the transaction carries no protocol payload.
package chain
