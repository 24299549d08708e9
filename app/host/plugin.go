package host

import (
	"context"
	"log/slog"

	"github.com/featherchat/desktop/internal/config"
)

// Plugin is a capability module registered on the host. Its Binding is
// exposed to the frontend through the IPC bridge; every exported method of
// the binding is a command.
type Plugin interface {
	Name() string
	// Commands lists every command the binding exposes.
	Commands() []string
	// DefaultCommands is the set granted by the "<name>:default" capability.
	DefaultCommands() []string
	Setup(rt Runtime) error
	Binding() any
	Shutdown(ctx context.Context) error
}

// Runtime is the host surface available to plugins after Setup.
type Runtime interface {
	// Authorize fails with ErrForbidden unless the application context
	// grants command to plugin.
	Authorize(plugin, command string) error
	// Emit sends an event to the frontend. Events emitted before the
	// webview is ready are queued.
	Emit(event string, payload any)
	DataDir() string
	Logger() *slog.Logger
	Config() *config.Context
}
