// Package logger configures the process-wide structured logger.
//
//   - logger.go: handler construction, dynamic level
//   - context.go: logger propagation through context.Context
//   - redact.go: credential redaction for DSNs and secret-named keys
//
// Library packages take a *slog.Logger; the CLI builds one here and passes
// it down.
package logger
