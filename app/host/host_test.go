package host

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wailsapp/wails/v2/pkg/options"

	"github.com/featherchat/desktop/app/lifecycle"
	"github.com/featherchat/desktop/internal/config"
	"github.com/featherchat/desktop/internal/logging"
)

const testContext = `
product_name = "Feather"
identifier = "chat.feather.test"
version = "1.2.3"

[window]
title = "Feather Test"
width = 1024
height = 768
min_width = 640
min_height = 480
resizable = false
background = "#102030"

[security]
capabilities = ["alpha:default", "beta:allow-write", "alpha:deny-secret"]
csp = "default-src 'self'"
single_instance = true

[log]
level = "debug"
`

func testAssets() fstest.MapFS {
	return fstest.MapFS{"frontend/dist/index.html": {Data: []byte("<!doctype html>")}}
}

type fakeBinding struct{ name string }

type fakePlugin struct {
	name     string
	cmds     []string
	defaults []string
	setupErr error
	binding  *fakeBinding

	rt       Runtime
	onSetup  func(rt Runtime)
	shutdown func(name string)
}

func (f *fakePlugin) Name() string              { return f.name }
func (f *fakePlugin) Commands() []string        { return f.cmds }
func (f *fakePlugin) DefaultCommands() []string { return f.defaults }
func (f *fakePlugin) Binding() any {
	if f.binding == nil {
		return nil
	}
	return f.binding
}

func (f *fakePlugin) Setup(rt Runtime) error {
	if f.setupErr != nil {
		return f.setupErr
	}
	f.rt = rt
	if f.onSetup != nil {
		f.onSetup(rt)
	}
	return nil
}

func (f *fakePlugin) Shutdown(context.Context) error {
	if f.shutdown != nil {
		f.shutdown(f.name)
	}
	return nil
}

type recordedEvent struct {
	name    string
	payload any
}

type harness struct {
	dataDir string

	mu     sync.Mutex
	events []recordedEvent
	opts   *options.App
	quits  int
}

func (h *harness) recorded() []recordedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedEvent(nil), h.events...)
}

func newTestBuilder(t *testing.T, runErr error) (*Builder, *harness) {
	t.Helper()
	dataDir := t.TempDir()
	h := &harness{dataDir: dataDir}
	t.Cleanup(func() { _ = lifecycle.CloseLogging() })

	b := &Builder{
		emit: func(_ context.Context, name string, data ...interface{}) {
			h.mu.Lock()
			defer h.mu.Unlock()
			var payload any
			if len(data) > 0 {
				payload = data[0]
			}
			h.events = append(h.events, recordedEvent{name: name, payload: payload})
		},
		quit:    func(context.Context) { h.quits++ },
		focus:   func(context.Context) {},
		dataDir: func(string) (string, error) { return dataDir, nil },
	}
	b.runner = func(opts *options.App) error {
		h.opts = opts
		if runErr != nil {
			return runErr
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		opts.OnStartup(ctx)
		opts.OnShutdown(ctx)
		return nil
	}
	return b, h
}

func alphaBeta(order *[]string) (*fakePlugin, *fakePlugin) {
	record := func(name string) { *order = append(*order, name) }
	alpha := &fakePlugin{
		name:     "alpha",
		cmds:     []string{"read", "write", "secret"},
		defaults: []string{"read", "write", "secret"},
		binding:  &fakeBinding{name: "alpha"},
		shutdown: record,
	}
	beta := &fakePlugin{
		name:     "beta",
		cmds:     []string{"read", "write"},
		defaults: []string{"read"},
		binding:  &fakeBinding{name: "beta"},
		shutdown: record,
	}
	return alpha, beta
}

func TestRunCleanShutdown(t *testing.T) {
	var order []string
	alpha, beta := alphaBeta(&order)
	alpha.onSetup = func(rt Runtime) { rt.Emit("alpha://ready", 1) }

	b, h := newTestBuilder(t, nil)
	err := b.Plugin(alpha).Plugin(beta).Run(config.Generate([]byte(testContext), testAssets()))
	require.NoError(t, err)

	require.NotNil(t, h.opts)
	assert.Equal(t, "Feather Test", h.opts.Title)
	assert.Equal(t, 1024, h.opts.Width)
	assert.Equal(t, 768, h.opts.Height)
	assert.Equal(t, 640, h.opts.MinWidth)
	assert.True(t, h.opts.DisableResize)
	assert.Equal(t, &options.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}, h.opts.BackgroundColour)
	require.NotNil(t, h.opts.SingleInstanceLock)
	assert.Equal(t, "chat.feather.test", h.opts.SingleInstanceLock.UniqueId)
	assert.Equal(t, []interface{}{alpha.binding, beta.binding}, h.opts.Bind)
	require.NotNil(t, h.opts.AssetServer)
	assert.NotNil(t, h.opts.AssetServer.Assets)

	// queued before startup, flushed on startup
	assert.Equal(t, []recordedEvent{{name: "alpha://ready", payload: 1}}, h.recorded())

	// reverse registration order
	assert.Equal(t, []string{"beta", "alpha"}, order)
}

func TestRunAuthorizeFromCapabilities(t *testing.T) {
	var order []string
	alpha, beta := alphaBeta(&order)

	b, _ := newTestBuilder(t, nil)
	require.NoError(t, b.Plugin(alpha).Plugin(beta).Run(config.Generate([]byte(testContext), testAssets())))

	rt := alpha.rt
	require.NotNil(t, rt)
	assert.NoError(t, rt.Authorize("alpha", "read"))
	assert.NoError(t, rt.Authorize("alpha", "write"))
	assert.ErrorIs(t, rt.Authorize("alpha", "secret"), ErrForbidden)
	assert.NoError(t, rt.Authorize("beta", "write"))
	assert.ErrorIs(t, rt.Authorize("beta", "read"), ErrForbidden)
	assert.ErrorIs(t, rt.Authorize("gamma", "read"), ErrForbidden)

	assert.Equal(t, "chat.feather.test", rt.Config().Identifier)
	assert.NotEmpty(t, rt.DataDir())
	assert.NotNil(t, rt.Logger())
}

func TestRunCorruptedContext(t *testing.T) {
	b, h := newTestBuilder(t, nil)
	err := b.Run(config.Generate([]byte("product_name = \n[[window"), testAssets()))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContext)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "failed to load application context")
	assert.Nil(t, h.opts, "event loop must not start")
}

func TestRunUnknownCapabilityPlugin(t *testing.T) {
	var order []string
	alpha, _ := alphaBeta(&order)

	b, h := newTestBuilder(t, nil)
	err := b.Plugin(alpha).Run(config.Generate([]byte(testContext), testAssets()))

	assert.ErrorIs(t, err, ErrSetup)
	assert.Contains(t, err.Error(), `unregistered plugin "beta"`)
	assert.Nil(t, h.opts)
}

func TestRunDuplicatePlugin(t *testing.T) {
	var order []string
	alpha, beta := alphaBeta(&order)

	b, _ := newTestBuilder(t, nil)
	err := b.Plugin(alpha).Plugin(beta).Plugin(alpha).Run(config.Generate([]byte(testContext), testAssets()))
	assert.ErrorIs(t, err, ErrSetup)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestRunPluginSetupFailure(t *testing.T) {
	var order []string
	alpha, beta := alphaBeta(&order)
	beta.setupErr = errors.New("disk full")

	b, h := newTestBuilder(t, nil)
	err := b.Plugin(alpha).Plugin(beta).Run(config.Generate([]byte(testContext), testAssets()))

	assert.ErrorIs(t, err, ErrSetup)
	assert.Contains(t, err.Error(), `plugin "beta": disk full`)
	assert.Equal(t, []string{"alpha"}, order, "plugins already set up are shut down")
	assert.Nil(t, h.opts)
}

func TestRunEventLoopFailure(t *testing.T) {
	var order []string
	alpha, beta := alphaBeta(&order)

	b, _ := newTestBuilder(t, errors.New("no display"))
	err := b.Plugin(alpha).Plugin(beta).Run(config.Generate([]byte(testContext), testAssets()))

	assert.ErrorIs(t, err, ErrEventLoop)
	assert.Contains(t, err.Error(), "no display")
	assert.Equal(t, []string{"beta", "alpha"}, order, "plugins are shut down after a failed event loop")
}

func TestRunEventLoopFailureKeepsLogOpen(t *testing.T) {
	b, h := newTestBuilder(t, errors.New("no display"))
	err := b.Run(config.Generate([]byte(testContext), testAssets()))
	require.ErrorIs(t, err, ErrEventLoop)

	// what lifecycle.Fatal does with the returned error
	slog.Error("error while running application", "error", err)
	require.NoError(t, lifecycle.CloseLogging())

	data, err := os.ReadFile(filepath.Join(lifecycle.LogDir(h.dataDir), logging.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `msg="event loop failed" error="no display"`)
	assert.Contains(t, string(data), `msg="error while running application" error="event loop failed: no display"`)
}

func TestSecondInstanceFocusesWindow(t *testing.T) {
	var order []string
	alpha, beta := alphaBeta(&order)

	focused := 0
	b, h := newTestBuilder(t, nil)
	b.focus = func(context.Context) { focused++ }
	b.runner = func(opts *options.App) error {
		h.opts = opts
		opts.SingleInstanceLock.OnSecondInstanceLaunch(options.SecondInstanceData{Args: []string{"x"}})
		assert.Equal(t, 0, focused, "no window before startup")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		opts.OnStartup(ctx)
		opts.SingleInstanceLock.OnSecondInstanceLaunch(options.SecondInstanceData{})
		opts.OnShutdown(ctx)
		return nil
	}

	require.NoError(t, b.Plugin(alpha).Plugin(beta).Run(config.Generate([]byte(testContext), testAssets())))
	assert.Equal(t, 1, focused)
}

func TestCSPMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	cspMiddleware("default-src 'self'")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	cspMiddleware("")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestFormatError(t *testing.T) {
	forbidden := (&acl{}).authorize("store", "clear")
	assert.Equal(t,
		map[string]string{"kind": "forbidden", "message": "command not allowed: plugin:store|clear"},
		formatError(forbidden))
	assert.Equal(t,
		map[string]string{"kind": "error", "message": "boom"},
		formatError(errors.New("boom")))
}
