// Package logging wraps zap with context-aware methods.
//
// Every method takes a context first; request id, user id and trace
// correlation found in the context are appended to the entry:
//
//	ctx = logging.WithUserID(ctx, "u_42")
//	logger.Info(ctx, "decision served", zap.Bool("cached", true))
//
// Output can go to stdout, to an OpenTelemetry LoggerProvider through the
// otelzap bridge, or both. Field names such as api_key are redacted by the
// encoder, and sampling never drops Error or above.
//
// Tests use NewTestLogger, which records entries with zaptest/observer.
package logging
