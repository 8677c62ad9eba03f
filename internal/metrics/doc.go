// Package metrics exposes Prometheus instrumentation for feedstore.
//
// Metrics satisfies pebblestore.MetricsHook so the storage layer can report
// write, read and batch commit latencies, and carries the registry level
// counters (open handles, creations, alias lookups). PebbleCollector exports
// a subset of Pebble's own counters on scrape.
//
// All methods are safe on a nil *Metrics so components can run without
// instrumentation.
package metrics
