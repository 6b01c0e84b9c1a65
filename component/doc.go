// Package component defines the lifecycle contract shared by the pipeline's
// long-running components (feed subscriber, ingest processor).
//
// Components follow a unified pattern: Initialize() performs setup without a
// context, Start(ctx) launches goroutines bound to the passed context, and
// Stop(timeout) shuts down gracefully, letting in-flight work finish or time
// out. The engine owns each component's child context and cancels it on
// shutdown; components never store contexts themselves.
package component
