// Package store is the persistent key-value plugin. Each store is a JSON
// file under the application data directory, addressed from the frontend by
// its relative path.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/featherchat/desktop/app/host"
)

const (
	Name = "store"

	// ChangeEvent is emitted after every persisted change of a key.
	ChangeEvent = "store://change"
)

var commands = []string{
	"load", "get", "set", "has", "delete", "clear", "reset",
	"keys", "values", "entries", "length", "reload", "save", "close",
}

var errNotSetUp = errors.New("store plugin is not set up")

// Change is the payload of ChangeEvent. Exists is false when the key was
// removed.
type Change struct {
	Path   string          `json:"path"`
	Key    string          `json:"key"`
	Value  json.RawMessage `json:"value"`
	Exists bool            `json:"exists"`
}

// Builder configures the plugin before it is registered.
type Builder struct {
	defaults map[string]map[string]json.RawMessage
}

func NewBuilder() *Builder {
	return &Builder{defaults: make(map[string]map[string]json.RawMessage)}
}

// Defaults sets the values a store at path starts from, and returns to on
// Reset. Defaults passed to Load take precedence.
func (b *Builder) Defaults(path string, values map[string]json.RawMessage) *Builder {
	b.defaults[path] = maps.Clone(values)
	return b
}

func (b *Builder) Build() *Plugin {
	p := &Plugin{
		defaults: maps.Clone(b.defaults),
		stores:   make(map[string]*Store),
	}
	p.cmds = &Commands{p: p}
	return p
}

// Plugin implements host.Plugin.
type Plugin struct {
	defaults map[string]map[string]json.RawMessage
	cmds     *Commands

	rt host.Runtime

	mu     sync.Mutex
	stores map[string]*Store
}

var _ host.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string              { return Name }
func (p *Plugin) Commands() []string        { return commands }
func (p *Plugin) DefaultCommands() []string { return commands }
func (p *Plugin) Binding() any              { return p.cmds }

func (p *Plugin) Setup(rt host.Runtime) error {
	defaults := make(map[string]map[string]json.RawMessage, len(p.defaults))
	for path, values := range p.defaults {
		key, _, err := resolvePath(rt.DataDir(), path)
		if err != nil {
			return err
		}
		compacted, err := compactDefaults(values)
		if err != nil {
			return fmt.Errorf("defaults of %s: %w", path, err)
		}
		defaults[key] = compacted
	}
	p.defaults = defaults
	p.rt = rt
	return nil
}

// Shutdown drops every loaded store. All changes are already on disk.
func (p *Plugin) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rt != nil {
		p.rt.Logger().Debug("closing stores", "count", len(p.stores))
	}
	clear(p.stores)
	return nil
}

// open returns the store at path, loading it on first use.
func (p *Plugin) open(path string, opts *LoadOptions) (*Store, error) {
	if p.rt == nil {
		return nil, errNotSetUp
	}
	key, file, err := resolvePath(p.rt.DataDir(), path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[key]; ok && (opts == nil || !opts.CreateNew) {
		return s, nil
	}

	defaults := p.defaults[key]
	createNew := false
	if opts != nil {
		if opts.Defaults != nil {
			if defaults, err = compactDefaults(opts.Defaults); err != nil {
				return nil, err
			}
		}
		createNew = opts.CreateNew
	}

	s, err := openStore(key, file, defaults, createNew)
	if err != nil {
		return nil, err
	}
	p.stores[key] = s
	p.rt.Logger().Debug("store loaded", "path", key, "keys", s.Len())
	return s, nil
}

func (p *Plugin) close(path string) error {
	if p.rt == nil {
		return errNotSetUp
	}
	key, _, err := resolvePath(p.rt.DataDir(), path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, key)
	return nil
}

func (p *Plugin) emitChange(path, key string, value json.RawMessage, exists bool) {
	p.rt.Emit(ChangeEvent, Change{Path: path, Key: key, Value: value, Exists: exists})
}

func compactDefaults(values map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		compact, err := compactValue(v)
		if err != nil {
			return nil, fmt.Errorf("default %q: %w", k, err)
		}
		out[k] = compact
	}
	return out, nil
}
