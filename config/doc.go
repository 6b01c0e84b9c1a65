// Package config loads and validates the ingestion daemon's configuration.
//
// Configuration comes from an optional JSON file, overridden by LOCKD_*
// environment variables, with hard-coded defaults underneath. The result is
// validated before any component is constructed; an invalid configuration is
// a fatal startup error, never a runtime surprise.
package config
