// Package logging provides structured logging for rfcoord.
//
// It wraps log/slog to give every component the same output format, level
// filtering, and default service/version fields.
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("gateway started", "port", cfg.Gateway.Port)
//
// Never log credentials or broker passwords.
package logging
