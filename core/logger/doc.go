// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework used by the conflict review API.
//
// # Context Awareness
//
// Two helpers attach correlation fields:
//   - WithRayID extracts the RayID set by the rayid middleware from a Fiber context.
//   - WithRun tags every line of a sync run with its run id, so a report archived in
//     object storage can be matched with the log lines that produced it.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log = logger.WithRun(log, runID, "sync sites")
//	log.Info("Run started")
package logger
