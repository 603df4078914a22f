// Package logging configures the zerolog logger and carries it through contexts.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger settings.
type Config struct {
	Level  string
	Format string // "console" or "json"
	File   FileConfig
}

// FileConfig enables a rotating log file next to the console output.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// New builds a logger from cfg and applies cfg.Level globally, so that
// SetLevel can change it later. The returned cleanup closes the log file, if any.
func New(cfg Config) (zerolog.Logger, func(), error) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	var console io.Writer = os.Stderr
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	cleanup := func() {}
	out := console

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return zerolog.Nop(), cleanup, fmt.Errorf("log file path is required when file logging is enabled")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0700); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		out = zerolog.MultiLevelWriter(console, fileWriter)
		cleanup = func() { _ = fileWriter.Close() }
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	return logger, cleanup, nil
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

// SetLevel changes the level of every logger at runtime.
func SetLevel(s string) zerolog.Level {
	level := ParseLevel(s)
	zerolog.SetGlobalLevel(level)
	return level
}

// Default returns an info-level console logger.
func Default() zerolog.Logger {
	logger, _, _ := New(Config{Level: "info"})
	return logger
}
