package host

import (
	"context"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"github.com/featherchat/desktop/internal/config"
)

// wailsLogger routes the host framework's own log lines into slog.
type wailsLogger struct {
	l *slog.Logger
}

func newWailsLogger(l *slog.Logger) *wailsLogger {
	return &wailsLogger{l: l.With("component", "wails")}
}

func (w *wailsLogger) Print(message string) { w.l.Info(message) }
func (w *wailsLogger) Trace(message string) {
	w.l.Log(context.Background(), config.LevelTrace, message)
}
func (w *wailsLogger) Debug(message string)   { w.l.Debug(message) }
func (w *wailsLogger) Info(message string)    { w.l.Info(message) }
func (w *wailsLogger) Warning(message string) { w.l.Warn(message) }
func (w *wailsLogger) Error(message string)   { w.l.Error(message) }
func (w *wailsLogger) Fatal(message string)   { w.l.Error(message, "fatal", true) }

func wailsLevel(level slog.Level) logger.LogLevel {
	switch {
	case level <= config.LevelTrace:
		return logger.TRACE
	case level <= slog.LevelDebug:
		return logger.DEBUG
	case level <= slog.LevelInfo:
		return logger.INFO
	case level <= slog.LevelWarn:
		return logger.WARNING
	default:
		return logger.ERROR
	}
}
