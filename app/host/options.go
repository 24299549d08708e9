package host

import (
	"errors"
	"net/http"

	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	"github.com/featherchat/desktop/internal/config"
)

// options translates the application context into host window options.
func (a *App) options() *options.App {
	w := a.ctx.Window
	level, _ := config.ParseLevel(a.ctx.Log.Level)

	opts := &options.App{
		Title:         w.Title,
		Width:         w.Width,
		Height:        w.Height,
		MinWidth:      w.MinWidth,
		MinHeight:     w.MinHeight,
		MaxWidth:      w.MaxWidth,
		MaxHeight:     w.MaxHeight,
		DisableResize: !w.Resizable,
		Frameless:     w.Frameless,
		StartHidden:   w.StartHidden,
		AlwaysOnTop:   w.AlwaysOnTop,
		AssetServer: &assetserver.Options{
			Assets:     a.ctx.Assets,
			Middleware: cspMiddleware(a.ctx.Security.CSP),
		},
		OnStartup:          a.startup,
		OnShutdown:         a.shutdown,
		Bind:               a.bindings(),
		ErrorFormatter:     formatError,
		Logger:             newWailsLogger(a.logger),
		LogLevel:           wailsLevel(level),
		LogLevelProduction: wailsLevel(level),
		Linux: &linux.Options{
			ProgramName: a.ctx.ProductName,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   a.ctx.ProductName,
				Message: "Version " + a.ctx.Version,
			},
		},
		Debug: options.Debug{
			OpenInspectorOnStartup: w.DevTools,
		},
	}

	if w.Fullscreen {
		opts.WindowStartState = options.Fullscreen
	}
	if bg, ok := a.ctx.Background(); ok {
		opts.BackgroundColour = &options.RGBA{R: bg.R, G: bg.G, B: bg.B, A: bg.A}
	}
	if a.ctx.Security.SingleInstance {
		opts.SingleInstanceLock = &options.SingleInstanceLock{
			UniqueId:               a.ctx.Identifier,
			OnSecondInstanceLaunch: a.secondInstance,
		}
	}
	return opts
}

func (a *App) bindings() []interface{} {
	bind := make([]interface{}, 0, len(a.plugins))
	for _, p := range a.plugins {
		if b := p.Binding(); b != nil {
			bind = append(bind, b)
		}
	}
	return bind
}

// formatError shapes command errors for the frontend promise rejection.
func formatError(err error) any {
	kind := "error"
	if errors.Is(err, ErrForbidden) {
		kind = "forbidden"
	}
	return map[string]string{"kind": kind, "message": err.Error()}
}

func cspMiddleware(policy string) assetserver.Middleware {
	return func(next http.Handler) http.Handler {
		if policy == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", policy)
			next.ServeHTTP(w, r)
		})
	}
}
