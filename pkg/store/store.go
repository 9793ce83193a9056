// Package store keeps executor snapshots between runs
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anggasct/umlsm"
)

// ErrNotFound is returned when no snapshot is stored under a key
var ErrNotFound = errors.New("snapshot not found")

// Format selects the snapshot encoding
type Format string

const (
	// JSON encodes snapshots with encoding/json
	JSON Format = "json"
	// YAML encodes snapshots with gopkg.in/yaml.v3
	YAML Format = "yaml"
)

// Store saves snapshots under caller-chosen keys, typically executor ids
type Store[C any] interface {
	Save(key string, snap *umlsm.Snapshot[C]) error
	Load(key string) (*umlsm.Snapshot[C], error)
	Delete(key string) error
	// List returns the keys of the snapshots taken from machineID, sorted
	List(machineID string) ([]string, error)
}

func encode[C any](format Format, snap *umlsm.Snapshot[C]) ([]byte, error) {
	switch format {
	case JSON:
		return snap.EncodeJSON()
	case YAML:
		return snap.EncodeYAML()
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}

func decode[C any](format Format, data []byte) (*umlsm.Snapshot[C], error) {
	switch format {
	case JSON:
		return umlsm.DecodeJSON[C](data)
	case YAML:
		return umlsm.DecodeYAML[C](data)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid snapshot key %q", key)
	}
	return nil
}

// MemoryStore keeps encoded snapshots in memory. Snapshots are stored
// encoded so callers never share trees or contexts with the store.
type MemoryStore[C any] struct {
	format    Format
	snapshots map[string][]byte
	machines  map[string]string
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store using JSON encoding
func NewMemoryStore[C any]() *MemoryStore[C] {
	return &MemoryStore[C]{
		format:    JSON,
		snapshots: make(map[string][]byte),
		machines:  make(map[string]string),
	}
}

// Save stores a copy of snap
func (s *MemoryStore[C]) Save(key string, snap *umlsm.Snapshot[C]) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(s.format, snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key] = data
	s.machines[key] = snap.StateMachine
	return nil
}

// Load returns a copy of the snapshot stored under key
func (s *MemoryStore[C]) Load(key string) (*umlsm.Snapshot[C], error) {
	s.mu.RLock()
	data, ok := s.snapshots[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return decode[C](s.format, data)
}

// Delete removes the snapshot stored under key
func (s *MemoryStore[C]) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.snapshots, key)
	delete(s.machines, key)
	return nil
}

// List returns the keys of the snapshots of machineID
func (s *MemoryStore[C]) List(machineID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for key, machine := range s.machines {
		if machine == machineID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// FileStore keeps one file per snapshot in a directory
type FileStore[C any] struct {
	directory string
	format    Format
	mu        sync.Mutex
}

// NewFileStore creates the directory if needed
func NewFileStore[C any](directory string, format Format) (*FileStore[C], error) {
	if format != JSON && format != YAML {
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore[C]{directory: directory, format: format}, nil
}

func (s *FileStore[C]) path(key string) string {
	return filepath.Join(s.directory, key+"."+string(s.format))
}

// Save writes the snapshot, replacing any previous one atomically
func (s *FileStore[C]) Save(key string, snap *umlsm.Snapshot[C]) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(s.format, snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.directory, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot stored under key
func (s *FileStore[C]) Load(key string) (*umlsm.Snapshot[C], error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return decode[C](s.format, data)
}

// Delete removes the snapshot file
func (s *FileStore[C]) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// List decodes every snapshot file and keeps those of machineID. Unreadable
// files are skipped.
func (s *FileStore[C]) List(machineID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}
	ext := "." + string(s.format)
	keys := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.directory, entry.Name()))
		if err != nil {
			continue
		}
		snap, err := decode[C](s.format, data)
		if err != nil {
			continue
		}
		if snap.StateMachine == machineID {
			keys = append(keys, strings.TrimSuffix(entry.Name(), ext))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var (
	_ Store[struct{}] = (*MemoryStore[struct{}])(nil)
	_ Store[struct{}] = (*FileStore[struct{}])(nil)
)
