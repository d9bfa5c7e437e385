// Package logger provides structured logging functionality for the application.
//
// It uses the standard library log/slog package for JSON logging with a
// configurable level, and carries request-scoped loggers through context.
package logger
