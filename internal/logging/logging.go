// Package logging provides the rotating file log shared by the shell and its
// plugins.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2" // for log rotation
)

const FileName = "app.log"

// Options controls where logs go and how they rotate.
type Options struct {
	Dir        string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Console tees every record to stderr. Release builds have no console.
	Console bool
}

var (
	logMu     sync.Mutex
	logOutput *lumberjack.Logger
	logPath   string
)

// Init creates the log directory, installs a rotating slog handler as the
// default logger and returns it. Calling Init again replaces the previous
// output.
func Init(opts Options) (*slog.Logger, error) {
	logMu.Lock()
	defer logMu.Unlock()

	if opts.Dir == "" {
		return nil, errors.New("log directory is not set")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if logOutput != nil {
		_ = logOutput.Close()
	}
	logPath = filepath.Join(opts.Dir, FileName)
	logOutput = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    opts.MaxSizeMB, //MBs
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   false,
	}

	var w io.Writer = logOutput
	if opts.Console {
		w = io.MultiWriter(logOutput, os.Stderr)
	}

	logger := slog.New(NewHandler(w, opts.Level))
	slog.SetDefault(logger)
	logger.Info("logging initialized", "path", logPath, "level", opts.Level)
	return logger, nil
}

// NewHandler returns the text handler used for the log file: source
// locations are kept but trimmed to the file's base name.
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	})
}

// Path returns the current log file, or "" before Init.
func Path() string {
	logMu.Lock()
	defer logMu.Unlock()
	return logPath
}

// Close flushes and closes the log file. The default logger falls back to
// stderr so late records are not lost.
func Close() error {
	logMu.Lock()
	defer logMu.Unlock()

	if logOutput == nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	err := logOutput.Close()
	logOutput = nil
	return err
}
