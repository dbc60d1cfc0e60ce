// Package logging provides per-module structured loggers on top of log/slog.
//
// Each module gets a named logger whose level can be set independently via
// configuration. Records fan out to stdout (text or json), the systemd
// journal when available, and an in-memory ring buffer that keeps the most
// recent entries for diagnostics.
package logging
