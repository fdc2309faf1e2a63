// Package logger is the structured application log. The terminal belongs to
// the UI, so records go to a file (or any writer) as JSON lines.
package logger

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// AppLogger tags every record with the operation that produced it.
type AppLogger interface {
	Debug(msg string, op string, args ...any)
	Info(msg string, op string, args ...any)
	Warn(msg string, op string, args ...any)
	Error(err error, op string, args ...any)
	InfoContext(ctx context.Context, msg string, op string, args ...any)
	SetLevel(level Level)
}

type appLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

func toSlog(level Level) slog.Level {
	switch level {
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

// New writes JSON records to w.
func New(w io.Writer, level Level) AppLogger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(toSlog(level))

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: a.Value}
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: a.Value}
			}
			return a
		},
	})

	return &appLogger{
		logger: slog.New(handler).With(slog.String("app", "eventmap")),
		level:  levelVar,
	}
}

// OpenFile opens (appending) the log file at path and returns a logger on it.
// The standard library logger is redirected to the same file so stray
// log.Printf calls never corrupt the screen. The caller closes the file.
func OpenFile(path string, level Level) (AppLogger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	log.SetOutput(f)
	return New(f, level), f, nil
}

// Discard returns a logger that drops everything.
func Discard() AppLogger {
	return New(io.Discard, LevelError)
}

func (l *appLogger) SetLevel(level Level) {
	l.level.Set(toSlog(level))
}

func (l *appLogger) Debug(msg string, op string, args ...any) {
	l.logger.With(slog.String("op", op)).Debug(msg, args...)
}

func (l *appLogger) Info(msg string, op string, args ...any) {
	l.logger.With(slog.String("op", op)).Info(msg, args...)
}

func (l *appLogger) Warn(msg string, op string, args ...any) {
	l.logger.With(slog.String("op", op)).Warn(msg, args...)
}

func (l *appLogger) Error(err error, op string, args ...any) {
	if err == nil {
		return
	}
	l.logger.With(
		slog.String("op", op),
		slog.String("error", err.Error()),
	).Error("operation failed", args...)
}

func (l *appLogger) InfoContext(ctx context.Context, msg string, op string, args ...any) {
	l.logger.With(slog.String("op", op)).InfoContext(ctx, msg, args...)
}
