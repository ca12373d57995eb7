// Package artifact stores rendered chart pages and hands back a reference that can later be
// resolved to the page contents.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

// RenderFunc writes an artifact body.
type RenderFunc func(w io.Writer) error

// Sink saves artifacts and opens them by the name returned from Save.
type Sink interface {
	Save(prefix string, render RenderFunc) (string, error)
	Open(name string) (io.ReadCloser, error)
}

func newName(prefix string) string {
	return fmt.Sprintf("%s_%s.html", prefix, uuid.NewString())
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%q, %w", name, ErrInvalidName)
	}
	return nil
}

// DirSink writes artifacts as files under Dir.
type DirSink struct {
	Dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create artifact directory, %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

func (s *DirSink) Save(prefix string, render RenderFunc) (string, error) {
	name := newName(prefix)
	path := filepath.Join(s.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("unable to create artifact, %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("unable to render %s, %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("unable to close %s, %w", name, err)
	}
	return name, nil
}

func (s *DirSink) Open(name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q, %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DefaultMemoryPages caps a MemorySink built with a non-positive size.
const DefaultMemoryPages = 256

// MemorySink keeps the most recent artifacts in memory. Saving past its capacity drops the
// oldest page.
type MemorySink struct {
	mu    sync.RWMutex
	max   int
	pages map[string][]byte
	order []string
}

func NewMemorySink(maxPages int) *MemorySink {
	if maxPages <= 0 {
		maxPages = DefaultMemoryPages
	}
	return &MemorySink{
		max:   maxPages,
		pages: make(map[string][]byte),
	}
}

func (s *MemorySink) Save(prefix string, render RenderFunc) (string, error) {
	var buf bytes.Buffer
	name := newName(prefix)
	if err := render(&buf); err != nil {
		return "", fmt.Errorf("unable to render %s, %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.max {
		delete(s.pages, s.order[0])
		s.order = s.order[1:]
	}
	s.pages[name] = buf.Bytes()
	s.order = append(s.order, name)
	return name, nil
}

func (s *MemorySink) Open(name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, exists := s.pages[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(page)), nil
}

// Len is the number of stored artifacts.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}
