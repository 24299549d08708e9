package store

import (
	"encoding/json"
)

// LoadOptions controls how Load opens a store.
type LoadOptions struct {
	// Defaults replaces the builder defaults for this store.
	Defaults map[string]json.RawMessage `json:"defaults,omitempty"`
	// CreateNew discards any existing file and starts from the defaults.
	CreateNew bool `json:"createNew,omitempty"`
}

// Lookup is the result of Get. Value is null when Exists is false.
type Lookup struct {
	Value  json.RawMessage `json:"value"`
	Exists bool            `json:"exists"`
}

// Commands is bound to the frontend as window.go.store.Commands. Every
// method checks the capability for its command before touching a store.
// Stores not explicitly loaded are opened on first use.
type Commands struct {
	p *Plugin
}

func (c *Commands) authorize(command string) error {
	if c.p.rt == nil {
		return errNotSetUp
	}
	return c.p.rt.Authorize(Name, command)
}

// Load opens the store at path and returns its normalized path.
func (c *Commands) Load(path string, opts LoadOptions) (string, error) {
	if err := c.authorize("load"); err != nil {
		return "", err
	}
	s, err := c.p.open(path, &opts)
	if err != nil {
		return "", err
	}
	return s.Path(), nil
}

func (c *Commands) Get(path, key string) (Lookup, error) {
	if err := c.authorize("get"); err != nil {
		return Lookup{}, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return Lookup{}, err
	}
	v, ok := s.Get(key)
	return Lookup{Value: v, Exists: ok}, nil
}

// Set stores value under key. The call returns once the change is on disk.
func (c *Commands) Set(path, key string, value json.RawMessage) error {
	if err := c.authorize("set"); err != nil {
		return err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return err
	}
	stored, err := s.Set(key, value)
	if err != nil {
		return err
	}
	c.p.emitChange(s.Path(), key, stored, true)
	return nil
}

func (c *Commands) Has(path, key string) (bool, error) {
	if err := c.authorize("has"); err != nil {
		return false, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return false, err
	}
	return s.Has(key), nil
}

// Delete removes key and reports whether it was present.
func (c *Commands) Delete(path, key string) (bool, error) {
	if err := c.authorize("delete"); err != nil {
		return false, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return false, err
	}
	deleted, err := s.Delete(key)
	if err != nil {
		return false, err
	}
	if deleted {
		c.p.emitChange(s.Path(), key, nil, false)
	}
	return deleted, nil
}

func (c *Commands) Clear(path string) error {
	if err := c.authorize("clear"); err != nil {
		return err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return err
	}
	removed, err := s.Clear()
	if err != nil {
		return err
	}
	for _, k := range removed {
		c.p.emitChange(s.Path(), k, nil, false)
	}
	return nil
}

// Reset restores the store defaults.
func (c *Commands) Reset(path string) error {
	if err := c.authorize("reset"); err != nil {
		return err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return err
	}
	changed, err := s.Reset()
	if err != nil {
		return err
	}
	for _, e := range changed {
		c.p.emitChange(s.Path(), e.Key, e.Value, e.Value != nil)
	}
	return nil
}

// Keys returns the keys in lexical order.
func (c *Commands) Keys(path string) ([]string, error) {
	if err := c.authorize("keys"); err != nil {
		return nil, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return nil, err
	}
	return s.Keys(), nil
}

// Values returns the values ordered by key.
func (c *Commands) Values(path string) ([]json.RawMessage, error) {
	if err := c.authorize("values"); err != nil {
		return nil, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return nil, err
	}
	return s.Values(), nil
}

func (c *Commands) Entries(path string) ([]Entry, error) {
	if err := c.authorize("entries"); err != nil {
		return nil, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return nil, err
	}
	return s.Entries(), nil
}

func (c *Commands) Length(path string) (int, error) {
	if err := c.authorize("length"); err != nil {
		return 0, err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return 0, err
	}
	return s.Len(), nil
}

// Reload re-reads the store from disk, dropping the in-memory state.
func (c *Commands) Reload(path string) error {
	if err := c.authorize("reload"); err != nil {
		return err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return err
	}
	return s.Reload()
}

func (c *Commands) Save(path string) error {
	if err := c.authorize("save"); err != nil {
		return err
	}
	s, err := c.p.open(path, nil)
	if err != nil {
		return err
	}
	return s.Save()
}

// Close unloads the store. The file is kept.
func (c *Commands) Close(path string) error {
	if err := c.authorize("close"); err != nil {
		return err
	}
	return c.p.close(path)
}
