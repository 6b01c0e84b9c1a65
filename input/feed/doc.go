// Package feed implements the upstream transaction feed input.
//
// The input holds a WebSocket subscription against the feed provider,
// starting from a resume height, and republishes every delivered transaction
// onto the internal JetStream bus. Connection loss triggers bounded
// exponential-backoff reconnection; each reconnect resubscribes from the last
// confirmed height so no block range is skipped. Exhausting the reconnect
// budget is fatal and surfaces through the engine.
//
// Feed status signals are advisory: block-complete advances the resume
// height, waiting is normal idle chatter, a reorg notice is logged as a
// warning (no rollback), and an error status forces a reconnect.
package feed
