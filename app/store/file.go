package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// resolvePath maps a frontend store path onto a file under dataDir. Only
// local relative paths are accepted.
func resolvePath(dataDir, path string) (key, file string, err error) {
	if path == "" || !filepath.IsLocal(filepath.FromSlash(path)) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.ToSlash(clean), filepath.Join(dataDir, clean), nil
}

// writeFile replaces name with data. A crash leaves either the old or the
// new file, never a partial one.
func writeFile(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", dir, err)
	}
	return atomic.WriteFile(name, bytes.NewReader(data))
}
