package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
)

var (
	// ErrInvalidPath rejects store paths outside the app-data directory.
	ErrInvalidPath = errors.New("invalid store path")
	// ErrInvalidValue rejects values that are not a single JSON document.
	ErrInvalidValue = errors.New("invalid store value")
	// ErrCorrupt means the store file exists but is not a JSON object.
	ErrCorrupt = errors.New("corrupt store file")
)

// Entry is one key/value pair of a store.
type Entry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Store is one preference file. Every mutation is written to disk before
// the method returns; a failed write leaves the in-memory state unchanged.
type Store struct {
	path     string
	file     string
	defaults map[string]json.RawMessage

	lock    sync.Mutex
	entries map[string]json.RawMessage
}

func openStore(path, file string, defaults map[string]json.RawMessage, createNew bool) (*Store, error) {
	s := &Store{
		path:     path,
		file:     file,
		defaults: defaults,
	}

	if createNew {
		s.entries = maps.Clone(defaults)
		if s.entries == nil {
			s.entries = make(map[string]json.RawMessage)
		}
		if err := s.writeStore(s.entries); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := s.initStore(); err != nil {
		return nil, err
	}
	return s, nil
}

// initStore loads the file over the defaults. A missing file is an empty
// store and is not created until the first write.
func (s *Store) initStore() error {
	entries := maps.Clone(s.defaults)
	if entries == nil {
		entries = make(map[string]json.RawMessage)
	}

	data, err := os.ReadFile(s.file)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("initializing new store", "path", s.file)
		s.entries = entries
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store %s: %w", s.path, err)
	}

	var loaded map[string]json.RawMessage
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("failed to decode store file", "path", s.file, "error", err)
		return fmt.Errorf("%w %s: %v", ErrCorrupt, s.path, err)
	}
	for k, v := range loaded {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return fmt.Errorf("%w %s: key %q: %v", ErrCorrupt, s.path, k, err)
		}
		entries[k] = buf.Bytes()
	}

	s.entries = entries
	slog.Debug("loaded existing store", "path", s.file, "keys", len(entries))
	return nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(key string) (json.RawMessage, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	v, ok := s.entries[key]
	return slices.Clone(v), ok
}

func (s *Store) Has(key string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Set stores value under key and returns the value as stored. Value must be
// valid JSON; it is kept in compact form.
func (s *Store) Set(key string, value json.RawMessage) (json.RawMessage, error) {
	compact, err := compactValue(value)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	next := maps.Clone(s.entries)
	next[key] = compact
	if err := s.commit(next); err != nil {
		return nil, err
	}
	return slices.Clone(compact), nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false, nil
	}
	next := maps.Clone(s.entries)
	delete(next, key)
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every key and returns the removed keys.
func (s *Store) Clear() ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	removed := sortedKeys(s.entries)
	if err := s.commit(make(map[string]json.RawMessage)); err != nil {
		return nil, err
	}
	return removed, nil
}

// Reset restores the defaults and returns every entry whose value changed,
// ordered by key. Removed keys have a nil Value.
func (s *Store) Reset() ([]Entry, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	next := maps.Clone(s.defaults)
	if next == nil {
		next = make(map[string]json.RawMessage)
	}

	var changed []string
	for k, v := range s.entries {
		if d, ok := next[k]; !ok || !bytes.Equal(d, v) {
			changed = append(changed, k)
		}
	}
	for k := range next {
		if _, ok := s.entries[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)

	if err := s.commit(next); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(changed))
	for _, k := range changed {
		entries = append(entries, Entry{Key: k, Value: slices.Clone(next[k])})
	}
	return entries, nil
}

func (s *Store) Keys() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return sortedKeys(s.entries)
}

func (s *Store) Values() []json.RawMessage {
	s.lock.Lock()
	defer s.lock.Unlock()

	values := make([]json.RawMessage, 0, len(s.entries))
	for _, k := range sortedKeys(s.entries) {
		values = append(values, slices.Clone(s.entries[k]))
	}
	return values
}

func (s *Store) Entries() []Entry {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, k := range sortedKeys(s.entries) {
		entries = append(entries, Entry{Key: k, Value: slices.Clone(s.entries[k])})
	}
	return entries
}

func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.entries)
}

// Reload discards the in-memory state and reads the file again.
func (s *Store) Reload() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.initStore()
}

// Save writes the current state to disk.
func (s *Store) Save() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.writeStore(s.entries)
}

// commit persists next and only then makes it the current state.
func (s *Store) commit(next map[string]json.RawMessage) error {
	if err := s.writeStore(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *Store) writeStore(entries map[string]json.RawMessage) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		slog.Error("failed to marshal store", "path", s.file, "error", err)
		return fmt.Errorf("marshal store %s: %w", s.path, err)
	}

	if err := writeFile(s.file, buf.Bytes()); err != nil {
		slog.Error("failed to write store", "path", s.file, "error", err)
		return fmt.Errorf("write store %s: %w", s.path, err)
	}

	slog.Debug("wrote store", "path", s.file, "bytes", buf.Len())
	return nil
}

func compactValue(value json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidValue)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
