// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logger provides the structured logger used across the engine:
// a slog.Logger underneath, fanned out to stdout and an optional log
// file via slog-multi, with call-site source locations that point at
// the caller rather than this package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the logging surface every component depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

type logger struct {
	slog  *slog.Logger
	debug bool
}

// Option configures a Logger built by NewLogger.
type Option func(*options)

type options struct {
	debug      bool
	format     string
	quiet      bool
	writer     io.Writer
	hasWriter  bool
	logFile    *os.File
}

// WithDebug enables debug-level logging and source locations.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithFormat selects "text" (default) or "json" output.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithQuiet suppresses the stdout sink, useful when only a log file
// destination matters (as in most tests).
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// WithWriter overrides the default stdout sink with w. Unlike the
// default sink, an explicit writer is never suppressed by WithQuiet.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
		o.hasWriter = true
	}
}

// WithLogFile adds f as a second sink, fanned out alongside stdout.
func WithLogFile(f *os.File) Option {
	return func(o *options) { o.logFile = f }
}

// NewLogger builds a Logger from the given options.
func NewLogger(opts ...Option) Logger {
	o := &options{writer: os.Stdout, format: "text"}
	for _, opt := range opts {
		opt(o)
	}

	// WithQuiet suppresses the implicit default stdout sink; an
	// explicitly supplied writer (WithWriter) is always honored.
	var sinks []io.Writer
	if o.hasWriter || !o.quiet {
		sinks = append(sinks, o.writer)
	}
	if o.logFile != nil {
		sinks = append(sinks, o.logFile)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, io.Discard)
	}

	handlerOpts := &slog.HandlerOptions{
		AddSource: o.debug,
		Level:     levelFor(o.debug),
	}

	handlers := make([]slog.Handler, 0, len(sinks))
	for _, w := range sinks {
		handlers = append(handlers, newHandler(w, o.format, handlerOpts))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		fanout := make([]slog.Handler, len(handlers))
		copy(fanout, handlers)
		h = slogmulti.Fanout(fanout...)
	}

	return &logger{slog: slog.New(h), debug: o.debug}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func levelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// callerSkip counts stack frames between runtime.Callers and the user
// call site: log itself, then the single Logger method (Debug, Infof,
// ...) that invoked it. The package-level helpers in context.go call log
// directly, so they sit at the same depth and pass the same skip.
const callerSkip = 3

func (l *logger) log(skip int, level slog.Level, msg string, args ...any) {
	if !l.slog.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.slog.Handler().Handle(context.Background(), r)
}

func (l *logger) Debug(msg string, args ...any) { l.log(callerSkip, slog.LevelDebug, msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.log(callerSkip, slog.LevelInfo, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.log(callerSkip, slog.LevelWarn, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.log(callerSkip, slog.LevelError, msg, args...) }

func (l *logger) Debugf(format string, args ...any) {
	l.log(callerSkip, slog.LevelDebug, fmt.Sprintf(format, args...))
}
func (l *logger) Infof(format string, args ...any) {
	l.log(callerSkip, slog.LevelInfo, fmt.Sprintf(format, args...))
}
func (l *logger) Warnf(format string, args ...any) {
	l.log(callerSkip, slog.LevelWarn, fmt.Sprintf(format, args...))
}
func (l *logger) Errorf(format string, args ...any) {
	l.log(callerSkip, slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(args...), debug: l.debug}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{slog: l.slog.WithGroup(name), debug: l.debug}
}
