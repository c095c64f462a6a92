// Package logging provides structured logging for the coupon system.
//
// It wraps log/slog with JSON or text output, level filtering, and default
// service and version attributes on every record. Components receive a
// child logger via With("component", name).
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting", "pool_size", cfg.Pool.Size)
package logging
