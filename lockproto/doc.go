// Package lockproto decodes the lockd.app on-chain protocol.
//
// The protocol rides in null-data outputs: a fixed application marker
// followed by key=value tokens (content, tags, lock amounts, vote options)
// and optionally raw embedded media. The interpreter classifies each
// transaction as a content post, vote post or lock event and assembles the
// canonical record handed to persistence. Everything in this package is pure:
// no I/O, no shared state, one transaction in, one record (or nil) out.
package lockproto
