package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const LogDirName = "logs"

var userConfigDir = os.UserConfigDir

// AppDataDir returns the per-user application-data directory for identifier,
// creating it if needed. Stores and logs live below it.
func AppDataDir(identifier string) (string, error) {
	if identifier == "" {
		return "", errors.New("application identifier is empty")
	}

	configDir, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, identifier)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// LogDir is where the rotating log for dataDir lives.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, LogDirName)
}

func EnsureDir(dir string) error {
	_, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create dir", "path", dir, "error", err)
			return fmt.Errorf("create app dir %s: %w", dir, err)
		}
		return nil
	}
	return err
}
