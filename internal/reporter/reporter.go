// Package reporter defines the pluggable hook operators are alerted
// through when something goes wrong inside the serving pipeline.
//
// No Sentry SDK is used in this module's dependency tree: nothing else in
// the stack this module was built from touches Sentry, so rather than
// invent an unused import, the logging-only LoggingReporter is the only
// implementation, whether or not SENTRY_DSN is set. Errors are not sent
// to any external service.
package reporter

import "log/slog"

// ErrorReporter is told about errors that a human should be alerted to,
// separately from the structured log line already written for them.
type ErrorReporter interface {
	Report(err error, context map[string]any)
}

// LoggingReporter reports errors by writing an Error-level log line. New
// returns it whether or not SENTRY_DSN is set.
type LoggingReporter struct {
	logger *slog.Logger
}

// NewLoggingReporter builds a LoggingReporter.
func NewLoggingReporter(logger *slog.Logger) *LoggingReporter {
	return &LoggingReporter{logger: logger}
}

// Report logs err at Error level with context attached as key-value pairs.
func (r *LoggingReporter) Report(err error, context map[string]any) {
	args := make([]any, 0, len(context)*2+2)
	args = append(args, "error", err)
	for k, v := range context {
		args = append(args, k, v)
	}
	r.logger.Error("reported error", args...)
}

// New returns a LoggingReporter when dsn is empty, and a LoggingReporter
// otherwise too: this module carries no Sentry client, so a non-empty DSN
// is only logged as configured, not dispatched anywhere, until an operator
// wires a real client behind this interface.
func New(dsn string, logger *slog.Logger) ErrorReporter {
	if dsn != "" {
		logger.Info("SENTRY_DSN is set, but no external reporter is wired in this build; falling back to log-only reporting")
	}
	return NewLoggingReporter(logger)
}
