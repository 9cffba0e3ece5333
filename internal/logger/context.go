// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type contextKey struct{}

// WithLogger returns a context carrying l, retrievable with FromContext.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger attached to ctx, or a quiet discard
// logger if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return NewLogger(WithQuiet())
}

// Each function below calls straight into *logger.log at callerSkip
// rather than through a shared helper, so this function itself is the
// only frame between the call site and log's runtime.Callers — the same
// depth a direct l.Debug(...) method call has. A non-*logger Logger
// (not produced by this package) falls back to its own method, which
// loses exact source attribution but keeps behavior correct.

func Debug(ctx context.Context, msg string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelDebug, msg, args...)
		return
	}
	FromContext(ctx).Debug(msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelInfo, msg, args...)
		return
	}
	FromContext(ctx).Info(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelWarn, msg, args...)
		return
	}
	FromContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelError, msg, args...)
		return
	}
	FromContext(ctx).Error(msg, args...)
}

func Debugf(ctx context.Context, format string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelDebug, fmt.Sprintf(format, args...))
		return
	}
	FromContext(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelInfo, fmt.Sprintf(format, args...))
		return
	}
	FromContext(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelWarn, fmt.Sprintf(format, args...))
		return
	}
	FromContext(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	if lg, ok := FromContext(ctx).(*logger); ok {
		lg.log(callerSkip, slog.LevelError, fmt.Sprintf(format, args...))
		return
	}
	FromContext(ctx).Errorf(format, args...)
}
