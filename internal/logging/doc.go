// Package logging provides structured logging for xpdeck.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used across the panel: device events, page switches,
// simulator commands and telemetry samples.
//
// # Log Levels
//
//   - Debug: raw device packets, every dataref sample, input events
//   - Info: connections, page switches, command dispatch
//   - Warn: dropped events, retries, profile warnings
//   - Error: transport failures
//
// # Configuration
//
// The level comes from the --log-level flag or the XPDECK_LOG_LEVEL
// environment variable. With neither set the logger is a no-op, so the
// simulator UI owns the terminal undisturbed:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Output goes to stderr in zap's console encoding.
package logging
