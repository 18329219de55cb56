// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production). Logs go to stderr so that stdout stays
// reserved for the per-stage summary counts.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Pipeline started")
//
//	// Inside a stage:
//	l := logger.WithStage(log, "shard")
//	l.Debug("Dropped line", zap.String("file", name))
package logger
