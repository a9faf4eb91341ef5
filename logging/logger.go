// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging constructs the structured loggers used across the
// migration-safety components.
//
// Analysis and lock packages accept a *slog.Logger; this package is the
// single place that decides where those logs go. Default output is
// text on stderr for CLI embedding. File logging is optional and
// JSON-formatted so migration audit trails can be collected after the
// fact.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("migration lock acquired", "schema", name)
//
// With a file destination:
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "/var/log/schemaguard",
//	    Service: "migrator",
//	})
//	defer logger.Close()
//
// # Security Considerations
//
// Nothing here redacts. Callers must not log connection strings or
// credentials; log metadata ("dsn_present", true), never the value.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", or "ERROR".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads a level name case-insensitively. Unknown names fall
// back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls logger construction. The zero value logs Info and
// above as text to stderr.
type Config struct {
	// Level is the minimum severity to emit.
	Level Level

	// Service tags every record and names the log file. Empty means
	// "schemaguard".
	Service string

	// LogDir enables JSON file logging when non-empty. The directory
	// is created if missing; files are named {service}_{date}.log.
	LogDir string

	// Writer overrides stderr. Tests pass a buffer or io.Discard.
	Writer io.Writer
}

// Logger wraps a *slog.Logger with ownership of its file handle.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// New builds a logger from config.
//
// Outputs:
//
//	*Logger - Never nil; file logging is skipped on setup failure
//	          rather than failing construction.
//	error - Non-nil only when LogDir was requested and unusable.
func New(cfg Config) (*Logger, error) {
	service := cfg.Service
	if service == "" {
		service = "schemaguard"
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.toSlog()}
	handlers := []slog.Handler{slog.NewTextHandler(w, opts)}

	var file *os.File
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return &Logger{slog: tagged(handlers, service)}, fmt.Errorf("creating log directory %s: %w", cfg.LogDir, err)
		}
		name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return &Logger{slog: tagged(handlers, service)}, fmt.Errorf("opening log file %s: %w", name, err)
		}
		file = f
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
	}

	return &Logger{slog: tagged(handlers, service), file: file}, nil
}

// Default returns a text-to-stderr logger at Info level.
func Default() *Logger {
	l, _ := New(Config{})
	return l
}

// Discard returns a logger that drops every record. For tests and for
// callers that opt out of logging entirely.
func Discard() *Logger {
	l, _ := New(Config{Writer: io.Discard, Level: LevelError})
	return l
}

// Slog exposes the underlying *slog.Logger for injection into
// components that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a logger carrying additional key-value context. The
// file handle stays owned by the parent; only close the parent.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), file: nil}
}

// Close flushes and releases the log file, if any. Safe to call on a
// stderr-only logger.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	l.file = nil
	return nil
}

// tagged fans records out to every handler and stamps the service name.
func tagged(handlers []slog.Handler, service string) *slog.Logger {
	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = &multiHandler{handlers: handlers}
	}
	return slog.New(h).With("service", service)
}
