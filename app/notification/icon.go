package notification

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// iconCacheDir holds bundled icons copied out for the OS notifier, which
// only reads real files.
const iconCacheDir = "notification-icons"

// resolveIcon maps an icon reference from the frontend onto a file. The
// reference must be a relative path naming either a bundled asset or a file
// under the app-data directory.
func (p *Plugin) resolveIcon(icon string) (string, error) {
	if icon == "" {
		return "", nil
	}
	name := filepath.FromSlash(icon)
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: icon %q must be a relative path", ErrInvalid, icon)
	}

	if assets := p.rt.Config().Assets; assets != nil {
		assetPath := path.Clean(filepath.ToSlash(name))
		if data, err := fs.ReadFile(assets, assetPath); err == nil {
			return p.cacheIcon(assetPath, data)
		}
	}

	file := filepath.Join(p.rt.DataDir(), name)
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: icon %q not found", ErrInvalid, icon)
	}
	return file, nil
}

func (p *Plugin) cacheIcon(assetPath string, data []byte) (string, error) {
	file := filepath.Join(p.rt.DataDir(), iconCacheDir, filepath.FromSlash(assetPath))
	if cached, err := os.ReadFile(file); err == nil && bytes.Equal(cached, data) {
		return file, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return "", fmt.Errorf("failed to create icon cache: %w", err)
	}
	if err := atomic.WriteFile(file, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to cache icon %s: %w", assetPath, err)
	}
	p.rt.Logger().Debug("cached notification icon", "plugin", Name, "asset", assetPath, "path", file)
	return file, nil
}
