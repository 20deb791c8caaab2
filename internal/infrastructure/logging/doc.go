// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output on stderr for machine parsing
//   - Development: colored console output for human readability
//
// Logs always go to stderr: stdout may be attached to a terminal
// stream and must never carry daemon diagnostics.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("session spawned", zap.String("session_id", id))
package logging
