// Package monitoring provides Prometheus metrics for the terminal daemon.
//
// Metrics cover the HTTP surface, session lifecycle (spawns, respawns,
// active count), PTY byte throughput, interrupt resolutions, and
// WebSocket attachments. Exposed on /metrics in the standard text
// format.
package monitoring
