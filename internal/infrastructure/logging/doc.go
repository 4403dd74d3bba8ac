// Package logging provides structured logging for the device runtime.
//
// It wraps log/slog so every record carries the service name and build
// version, and hands out per-component child loggers.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("scheduler").Info("startup complete", "tick", cfg.GetTick())
//
// # Security
//
// Never log private keys or broker passwords. The credentials package
// formats identities without key material for this reason.
package logging
