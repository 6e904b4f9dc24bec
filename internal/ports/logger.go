package ports

import "context"

// Logger defines a standard interface for logging messages and errors.
// This allows injecting different logging implementations.
type Logger interface {
	// Debug logs a message at Debug level.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs a message at Info level.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs a message at Warning level.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error message at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}

// NopLogger discards everything. Useful as a default in tests and optional
// components.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...map[string]interface{}) {}
func (NopLogger) Info(context.Context, string, ...map[string]interface{})  {}
func (NopLogger) Warn(context.Context, string, ...map[string]interface{})  {}
func (NopLogger) Error(context.Context, error, string, ...map[string]interface{}) {
}
