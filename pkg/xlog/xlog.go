// Package xlog extends log/slog with some features.
package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var (
	defaultLogger atomic.Value
)

func init() {
	c := NewConfig()
	defaultLogger.Store(New(c))
}

// Default returns the default Logger.
func Default() *Logger { return defaultLogger.Load().(*Logger) }

// SetDefault makes l the default Logger.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

// SetLevel calls Logger.SetLevel on the default logger.
func SetLevel(lvl slog.Level) {
	Default().SetLevel(lvl)
}

// Debug calls Logger.Debug on the default logger.
func Debug(msg string, args ...any) {
	Default().AddCallerSkip(1).Debug(msg, args...)
}

// DebugContext calls Logger.DebugContext on the default logger.
func DebugContext(ctx context.Context, msg string, args ...any) {
	Default().AddCallerSkip(1).DebugContext(ctx, msg, args...)
}

// Debugf calls Logger.Debugf on the default logger.
func Debugf(format string, args ...any) {
	Default().AddCallerSkip(1).Debugf(format, args...)
}

// Info calls Logger.Info on the default logger.
func Info(msg string, args ...any) {
	Default().AddCallerSkip(1).Info(msg, args...)
}

// InfoContext calls Logger.InfoContext on the default logger.
func InfoContext(ctx context.Context, msg string, args ...any) {
	Default().AddCallerSkip(1).InfoContext(ctx, msg, args...)
}

// Infof calls Logger.Infof on the default logger.
func Infof(format string, args ...any) {
	Default().AddCallerSkip(1).Infof(format, args...)
}

// Warn calls Logger.Warn on the default logger.
func Warn(msg string, args ...any) {
	Default().AddCallerSkip(1).Warn(msg, args...)
}

// WarnContext calls Logger.WarnContext on the default logger.
func WarnContext(ctx context.Context, msg string, args ...any) {
	Default().AddCallerSkip(1).WarnContext(ctx, msg, args...)
}

// Warnf calls Logger.Warnf on the default logger.
func Warnf(format string, args ...any) {
	Default().AddCallerSkip(1).Warnf(format, args...)
}

// Error calls Logger.Error on the default logger.
func Error(msg string, args ...any) {
	Default().AddCallerSkip(1).Error(msg, args...)
}

// ErrorContext calls Logger.ErrorContext on the default logger.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Default().AddCallerSkip(1).ErrorContext(ctx, msg, args...)
}

// Errorf calls Logger.Errorf on the default logger.
func Errorf(format string, args ...any) {
	Default().AddCallerSkip(1).Errorf(format, args...)
}
