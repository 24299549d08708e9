// Package host embeds the webview GUI host. A Builder collects capability
// plugins, loads the application context, opens the window and blocks on the
// event loop.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/featherchat/desktop/app/lifecycle"
	"github.com/featherchat/desktop/internal/config"
)

var (
	// ErrContext means the build-time application context could not be loaded.
	ErrContext = errors.New("failed to load application context")
	// ErrSetup means the host or one of its plugins could not be set up.
	ErrSetup = errors.New("failed to set up application")
	// ErrEventLoop means the event loop ended with an error.
	ErrEventLoop = errors.New("event loop failed")
	// ErrForbidden is returned to the frontend for commands its
	// capabilities do not grant.
	ErrForbidden = errors.New("command not allowed")
)

const pluginShutdownTimeout = 10 * time.Second

// Source yields the application context.
type Source interface {
	Load() (*config.Context, error)
}

// Builder assembles the host. The zero value is not usable; start from Default.
type Builder struct {
	plugins []Plugin

	runner  func(*options.App) error
	emit    emitFunc
	quit    func(ctx context.Context)
	focus   func(ctx context.Context)
	dataDir func(identifier string) (string, error)
}

// Default returns a builder wired to the native host.
func Default() *Builder {
	return &Builder{
		runner:  wails.Run,
		emit:    runtime.EventsEmit,
		quit:    runtime.Quit,
		focus:   focusWindow,
		dataDir: lifecycle.AppDataDir,
	}
}

// Plugin registers p. Plugins are set up in registration order and shut
// down in reverse.
func (b *Builder) Plugin(p Plugin) *Builder {
	b.plugins = append(b.plugins, p)
	return b
}

// Run loads the context, sets up every plugin and blocks until the last
// window closes. A nil error means a clean shutdown.
func (b *Builder) Run(src Source) error {
	lifecycle.DetachConsole()
	lifecycle.SetState(lifecycle.StateStarting)

	appCtx, err := src.Load()
	if err != nil {
		lifecycle.SetState(lifecycle.StateError)
		return fmt.Errorf("%w: %w", ErrContext, err)
	}

	dataDir, err := b.dataDir(appCtx.Identifier)
	if err != nil {
		lifecycle.SetState(lifecycle.StateError)
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	logger, err := lifecycle.InitLogging(appCtx, dataDir)
	if err != nil {
		lifecycle.SetState(lifecycle.StateError)
		return fmt.Errorf("%w: logging: %w", ErrSetup, err)
	}
	// On failure the log stays open for lifecycle.Fatal, which closes it.

	app, err := b.build(appCtx, dataDir, logger)
	if err != nil {
		lifecycle.SetState(lifecycle.StateError)
		logger.Error("failed to set up application", "error", err)
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	logger.Info(appCtx.ProductName+" starting", "identifier", appCtx.Identifier, "plugins", len(app.plugins), "data_dir", dataDir)

	if err := b.runner(app.options()); err != nil {
		app.shutdown(context.Background())
		lifecycle.SetState(lifecycle.StateError)
		logger.Error("event loop failed", "error", err)
		return fmt.Errorf("%w: %w", ErrEventLoop, err)
	}

	lifecycle.SetState(lifecycle.StateStopped)
	logger.Info(appCtx.ProductName + " exiting")
	_ = lifecycle.CloseLogging()
	return nil
}

func (b *Builder) build(appCtx *config.Context, dataDir string, logger *slog.Logger) (*App, error) {
	seen := make(map[string]bool, len(b.plugins))
	for _, p := range b.plugins {
		if p == nil {
			return nil, errors.New("nil plugin registered")
		}
		if seen[p.Name()] {
			return nil, fmt.Errorf("plugin %q registered twice", p.Name())
		}
		seen[p.Name()] = true
	}

	rules, err := newACL(appCtx.Security.Capabilities, b.plugins)
	if err != nil {
		return nil, err
	}

	app := &App{
		ctx:     appCtx,
		dataDir: dataDir,
		logger:  logger,
		acl:     rules,
		events:  newEmitter(b.emit),
		quit:    b.quit,
		focus:   b.focus,
	}

	for i, p := range b.plugins {
		if err := p.Setup(app); err != nil {
			app.shutdownPlugins(b.plugins[:i])
			return nil, fmt.Errorf("plugin %q: %w", p.Name(), err)
		}
		app.plugins = append(app.plugins, p)
		logger.Debug("plugin registered", "plugin", p.Name(), "granted", rules.granted(p.Name()))
	}
	return app, nil
}

// App is the running host. It implements Runtime for plugins.
type App struct {
	ctx     *config.Context
	dataDir string
	logger  *slog.Logger
	acl     *acl
	events  *emitter
	plugins []Plugin

	quit  func(ctx context.Context)
	focus func(ctx context.Context)

	mu       sync.Mutex
	wailsCtx context.Context
	stopOnce sync.Once
}

func (a *App) Authorize(plugin, command string) error {
	if err := a.acl.authorize(plugin, command); err != nil {
		a.logger.Warn("rejected command", "plugin", plugin, "command", command)
		return err
	}
	return nil
}

func (a *App) Emit(event string, payload any) { a.events.Emit(event, payload) }

func (a *App) DataDir() string { return a.dataDir }

func (a *App) Logger() *slog.Logger { return a.logger }

func (a *App) Config() *config.Context { return a.ctx }

func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.wailsCtx = ctx
	a.mu.Unlock()

	a.events.attach(ctx)
	lifecycle.WatchSignals(ctx, func() { a.quit(ctx) })
	lifecycle.SetState(lifecycle.StateRunning)
	a.logger.Info("webview ready")
}

func (a *App) shutdown(_ context.Context) {
	a.stopOnce.Do(func() {
		lifecycle.SetState(lifecycle.StateStopping)
		a.events.detach()
		a.shutdownPlugins(a.plugins)
		a.logger.Info("finished exit procedures")
	})
}

func (a *App) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), pluginShutdownTimeout)
	defer cancel()

	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			a.logger.Warn("plugin shutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

func (a *App) secondInstance(data options.SecondInstanceData) {
	a.logger.Info("second instance launched", "args", data.Args, "working_dir", data.WorkingDirectory)

	a.mu.Lock()
	ctx := a.wailsCtx
	a.mu.Unlock()
	if ctx != nil {
		a.focus(ctx)
	}
}

func focusWindow(ctx context.Context) {
	runtime.WindowUnminimise(ctx)
	runtime.WindowShow(ctx)
}
