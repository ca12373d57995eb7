package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrNoDataset = errors.New("no active dataset")

// Store holds the active dataset shared by requests. It loads lazily from a default path and
// keeps the handle until Invalidate or Set replaces it.
type Store struct {
	mu          sync.RWMutex
	current     *Dataset
	defaultPath string
}

// NewStore returns a store that loads defaultPath on first use. An empty path disables lazy
// loading so only Set provides data.
func NewStore(defaultPath string) *Store {
	return &Store{defaultPath: defaultPath}
}

// Current returns the active dataset, loading it from the default path if needed.
func (s *Store) Current() (*Dataset, error) {
	s.mu.RLock()
	ds := s.current
	s.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current, nil
	}
	if s.defaultPath == "" {
		return nil, ErrNoDataset
	}
	ds, err := Load(s.defaultPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load default dataset, %w", err)
	}
	slog.Info("loaded dataset", "path", s.defaultPath, "id", ds.ID, "rows", ds.NumRows())
	s.current = ds
	return ds, nil
}

// Set replaces the active dataset.
func (s *Store) Set(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ds
}

// Invalidate drops the active dataset so the next Current call reloads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		slog.Debug("invalidated dataset", "id", s.current.ID)
	}
	s.current = nil
}
