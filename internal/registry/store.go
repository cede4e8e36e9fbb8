package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

// Store loads and saves the tags document.
type Store interface {
	Load() (*Registry, error)
	Save(*Registry) error
}

// JSONStore persists the registry as a JSON object keyed by tag id.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store for the tags document at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the tags document location.
func (s *JSONStore) Path() string { return s.path }

// Load reads the tags document. A missing document is an empty registry.
func (s *JSONStore) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, errors.StorageError("failed to read tags").WithCause(err).WithContext("path", s.path).Build()
	}
	var tags map[string]TagConfig
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, errors.StorageError("failed to parse tags").WithCause(err).WithContext("path", s.path).Build()
	}
	return New(tags), nil
}

// Save writes the registry as indented JSON, replacing the file atomically.
func (s *JSONStore) Save(r *Registry) error {
	data, err := json.MarshalIndent(r.Tags(), "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode tags").Build()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.StorageError("failed to create tags directory").WithCause(err).Build()
	}
	if err := config.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return errors.StorageError("failed to write tags").WithCause(err).WithContext("path", s.path).Build()
	}
	return nil
}

// Reloader re-reads the store on demand and remembers the last good snapshot.
type Reloader struct {
	store Store
	last  *Registry
}

// NewReloader wraps store. The initial snapshot is empty until Reload succeeds.
func NewReloader(store Store) *Reloader {
	return &Reloader{store: store, last: New(nil)}
}

// Reload reads the store. On failure it returns the last good snapshot
// together with the StorageError so the caller can log and carry on.
func (r *Reloader) Reload() (*Registry, error) {
	reg, err := r.store.Load()
	if err != nil {
		return r.last, err
	}
	r.last = reg
	return reg, nil
}

// Current returns the last good snapshot without touching the store.
func (r *Reloader) Current() *Registry { return r.last }

// Save persists reg and makes it the current snapshot. The snapshot is kept
// in memory even when the write fails.
func (r *Reloader) Save(reg *Registry) error {
	r.last = reg
	return r.store.Save(reg)
}
