// Package natsclient manages the NATS connection and JetStream resources
// backing the internal transaction bus.
//
// The feed subscriber publishes raw transaction envelopes through a Client
// and the ingest processor consumes them via a durable JetStream consumer.
// The client wraps connection status tracking, stream bootstrap and a
// drain-on-close shutdown; reconnection of the bus itself is delegated to
// nats.go's built-in handlers.
package natsclient
