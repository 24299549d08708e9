package lifecycle

import (
	"log/slog"

	"github.com/featherchat/desktop/internal/config"
	"github.com/featherchat/desktop/internal/logging"
)

// InitLogging starts the rotating log below dataDir using the context's log
// settings. Debug builds also log to stderr.
func InitLogging(ctx *config.Context, dataDir string) (*slog.Logger, error) {
	level, err := config.ParseLevel(ctx.Log.Level)
	if err != nil {
		return nil, err
	}

	logger, err := logging.Init(logging.Options{
		Dir:        LogDir(dataDir),
		Level:      level,
		MaxSizeMB:  ctx.Log.MaxSizeMB,
		MaxBackups: ctx.Log.MaxBackups,
		MaxAgeDays: ctx.Log.MaxAgeDays,
		Console:    !Release,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx.ProductName+" logging starting", "version", ctx.Version, "release", Release)
	return logger, nil
}

func CloseLogging() error {
	return logging.Close()
}
