package log

// NoopLogger implements Logger by discarding all log messages.
type NoopLogger struct{}

// Discard is a shared NoopLogger.
var Discard Logger = NoopLogger{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
