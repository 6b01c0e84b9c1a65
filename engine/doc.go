// Package engine composes the ingestion daemon: the NATS client and stream,
// the persistence gateway, the feed input and the ingest processor, plus the
// health and metrics HTTP endpoint. Components start in dependency order and
// stop in reverse. A fatal feed error (reconnect budget spent) terminates
// Run with that error so the supervisor restarts the process.
package engine
