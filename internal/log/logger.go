package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures NewLogger.
type Options struct {
	// Console receives human-facing log output, typically os.Stderr.
	// Nil discards console output.
	Console io.Writer

	// Verbose lowers the console level from Warn to Debug.
	Verbose bool

	// JSON switches the console format from text to JSON.
	JSON bool

	// File is an optional path of a rotating log file.
	// The file always receives Debug level JSON records.
	File string

	// MaxSizeMB is the size at which the log file is rotated. Default 10.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Default 3.
	MaxBackups int

	// Secrets are literal values masked in every record.
	Secrets []string
}

// NewLogger builds the application logger.
//
// Console and file output go through one SecureHandler each, so secrets are
// masked in both, and records are fanned out to them with slog-multi. Each
// branch applies its own level. The returned closer flushes and closes the log file; it is
// a no-op when no file is configured.
//
// Design decision: The file sink always logs at Debug while the console
// stays quiet unless verbose. A failed run can then be diagnosed from the
// file without re-running it with -v.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	consoleLevel := slog.LevelWarn
	if opts.Verbose {
		consoleLevel = slog.LevelDebug
	}

	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	handlerOpts := &slog.HandlerOptions{Level: consoleLevel}
	var consoleHandler slog.Handler
	if opts.JSON {
		consoleHandler = slog.NewJSONHandler(console, handlerOpts)
	} else {
		consoleHandler = slog.NewTextHandler(console, handlerOpts)
	}
	consoleHandler = NewSecureHandler(consoleHandler, WithSecrets(opts.Secrets...))

	if opts.File == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     30,
		Compress:   true,
	}
	fileHandler := NewSecureHandler(
		slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: slog.LevelDebug}),
		WithSecrets(opts.Secrets...),
	)

	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler)), rotator, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
