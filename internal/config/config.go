// Package config loads the application context: the build-time description of
// the window, the bundled frontend and the capabilities granted to it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every error returned while loading a context.
var ErrInvalid = errors.New("invalid application context")

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*(\.[A-Za-z0-9-]+)+$`)
	permissionPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*:(default|allow-[a-z0-9-]+|deny-[a-z0-9-]+)$`)
)

// Context is the parsed application context.
type Context struct {
	ProductName string   `toml:"product_name"`
	Identifier  string   `toml:"identifier"`
	Version     string   `toml:"version"`
	Window      Window   `toml:"window"`
	Frontend    Frontend `toml:"frontend"`
	Security    Security `toml:"security"`
	Log         Log      `toml:"log"`

	// Assets is the frontend tree rooted at Frontend.Dist.
	Assets fs.FS `toml:"-"`
}

type Window struct {
	Title       string `toml:"title"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	MinWidth    int    `toml:"min_width"`
	MinHeight   int    `toml:"min_height"`
	MaxWidth    int    `toml:"max_width"`
	MaxHeight   int    `toml:"max_height"`
	Resizable   bool   `toml:"resizable"`
	Fullscreen  bool   `toml:"fullscreen"`
	Frameless   bool   `toml:"frameless"`
	StartHidden bool   `toml:"start_hidden"`
	AlwaysOnTop bool   `toml:"always_on_top"`
	Background  string `toml:"background"`
	DevTools    bool   `toml:"devtools"`
}

type Frontend struct {
	Dist  string `toml:"dist"`
	Entry string `toml:"entry"`
}

type Security struct {
	Capabilities   []string `toml:"capabilities"`
	CSP            string   `toml:"csp"`
	SingleInstance bool     `toml:"single_instance"`
}

type Log struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// RGBA is a parsed window background colour.
type RGBA struct {
	R, G, B, A uint8
}

// Generated pairs the embedded context document with the embedded assets.
// Nothing is parsed until Load is called.
type Generated struct {
	raw    []byte
	assets fs.FS
}

// Generate wraps the build-time context document and asset tree.
func Generate(raw []byte, assets fs.FS) *Generated {
	return &Generated{raw: raw, assets: assets}
}

// Load parses and validates the context and roots the assets at the
// frontend dist directory.
func (g *Generated) Load() (*Context, error) {
	ctx, err := Parse(g.raw)
	if err != nil {
		return nil, err
	}
	if g.assets == nil {
		return nil, fmt.Errorf("%w: no frontend assets bundled", ErrInvalid)
	}

	dist, err := fs.Sub(g.assets, ctx.Frontend.Dist)
	if err != nil {
		return nil, fmt.Errorf("%w: frontend dist %q: %v", ErrInvalid, ctx.Frontend.Dist, err)
	}
	info, err := fs.Stat(dist, ctx.Frontend.Entry)
	if err != nil {
		return nil, fmt.Errorf("%w: frontend entry %q not bundled: %v", ErrInvalid, path.Join(ctx.Frontend.Dist, ctx.Frontend.Entry), err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: frontend entry %q is a directory", ErrInvalid, ctx.Frontend.Entry)
	}
	ctx.Assets = dist

	slog.Debug("loaded application context", "identifier", ctx.Identifier, "version", ctx.Version, "capabilities", len(ctx.Security.Capabilities))
	return ctx, nil
}

// Parse decodes a context document, applies defaults and validates it.
func Parse(raw []byte) (*Context, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: context document is empty", ErrInvalid)
	}

	var ctx Context
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ctx); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %v", ErrInvalid, row, col, derr)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ctx.applyDefaults()
	if err := ctx.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &ctx, nil
}

func (c *Context) applyDefaults() {
	if c.Window.Title == "" {
		c.Window.Title = c.ProductName
	}
	if c.Frontend.Dist == "" {
		c.Frontend.Dist = "frontend/dist"
	}
	if c.Frontend.Entry == "" {
		c.Frontend.Entry = "index.html"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
}

func (c *Context) validate() error {
	if c.ProductName == "" {
		return errors.New("product_name is required")
	}
	if c.Version == "" {
		return errors.New("version is required")
	}
	if !identifierPattern.MatchString(c.Identifier) {
		return fmt.Errorf("identifier %q is not a reverse domain name", c.Identifier)
	}

	w := c.Window
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", w.Width, w.Height)
	}
	if w.MinWidth < 0 || w.MinHeight < 0 || w.MaxWidth < 0 || w.MaxHeight < 0 {
		return errors.New("window bounds must not be negative")
	}
	if w.MinWidth > w.Width || w.MinHeight > w.Height {
		return fmt.Errorf("window size %dx%d is below the minimum %dx%d", w.Width, w.Height, w.MinWidth, w.MinHeight)
	}
	if (w.MaxWidth > 0 && w.MaxWidth < w.Width) || (w.MaxHeight > 0 && w.MaxHeight < w.Height) {
		return fmt.Errorf("window size %dx%d exceeds the maximum %dx%d", w.Width, w.Height, w.MaxWidth, w.MaxHeight)
	}
	if w.Background != "" {
		if _, err := ParseColour(w.Background); err != nil {
			return err
		}
	}

	if path.IsAbs(c.Frontend.Dist) || strings.HasPrefix(path.Clean(c.Frontend.Dist), "..") {
		return fmt.Errorf("frontend dist %q must be relative to the bundle", c.Frontend.Dist)
	}

	for _, p := range c.Security.Capabilities {
		if !permissionPattern.MatchString(p) {
			return fmt.Errorf("capability %q is not a permission identifier", p)
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation settings must not be negative")
	}
	return nil
}

// Background returns the parsed window background colour, if any.
func (c *Context) Background() (RGBA, bool) {
	if c.Window.Background == "" {
		return RGBA{}, false
	}
	rgba, err := ParseColour(c.Window.Background)
	if err != nil {
		return RGBA{}, false
	}
	return rgba, true
}

// LevelTrace sits below slog.LevelDebug for chatty host internals.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a context log level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// ParseColour accepts #rrggbb and #rrggbbaa.
func ParseColour(s string) (RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if hex == s || (len(hex) != 6 && len(hex) != 8) {
		return RGBA{}, fmt.Errorf("colour %q must be #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("colour %q: %v", s, err)
	}
	if len(hex) == 6 {
		return RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
