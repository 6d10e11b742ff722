// Package logging defines the structured-logging interface used by every
// FileGuard component, with slog and zap implementations behind it.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "file quarantined", "path", dst, "threat", label)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Config selects and tunes a Logger backend.
type Config struct {
	Backend     string // slog or zap
	Level       string // debug, info, warn, error
	JSON        bool
	Development bool
}

// New builds the logger described by cfg, writing to stdout.
func New(cfg Config) (Logger, error) {
	return newWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New for a slog backend writing to w instead of stdout.
// The zap backend keeps its configured output paths.
func NewWithWriter(cfg Config, w io.Writer) (Logger, error) {
	return newWithWriter(cfg, w)
}

func newWithWriter(cfg Config, w io.Writer) (Logger, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "slog":
		opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level)}
		var h slog.Handler
		if cfg.JSON {
			h = slog.NewJSONHandler(w, opts)
		} else {
			h = slog.NewTextHandler(w, opts)
		}
		return NewSlogLogger(slog.New(h)), nil
	case "zap":
		return NewZapLogger(ZapConfig{Level: cfg.Level, JSON: cfg.JSON, Development: cfg.Development})
	default:
		return nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}

func slogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
