// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured
// JSON logging with configurable log levels. Logs go to stderr so stdout
// stays available to the host editor.
package logger
