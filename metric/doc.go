// Package metric manages Prometheus metrics for the ingestion pipeline.
//
// A single MetricsRegistry owns a dedicated prometheus.Registry (namespace
// "lockd") plus the core pipeline metrics every component shares. Components
// register their own metrics under a "component.metric" key so duplicate
// registrations are caught at startup rather than at scrape time.
package metric
