package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONStorage persists runs to a single JSON file. Writes go to a temp file
// followed by an atomic rename so a crash never leaves a half-written store.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *storeData
}

type storeData struct {
	Runs        []RunResult `json:"runs"`
	LastUpdated time.Time   `json:"last_updated"`
}

// NewJSONStorage opens the store, loading existing data if the file exists.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: path,
		data:     &storeData{},
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}
	return s, nil
}

// SaveRun appends the run and flushes to disk.
func (s *JSONStorage) SaveRun(run *RunResult) error {
	if run.ID == "" {
		return fmt.Errorf("run has empty ID")
	}

	s.mu.Lock()
	for _, existing := range s.data.Runs {
		if existing.ID == run.ID {
			s.mu.Unlock()
			return fmt.Errorf("run %s already stored", run.ID)
		}
	}
	s.data.Runs = append(s.data.Runs, *run)
	s.mu.Unlock()

	return s.Save()
}

// GetRun returns a copy of the stored run.
func (s *JSONStorage) GetRun(id string) (*RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data.Runs {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// ListRuns returns copies of all stored runs in insertion order.
func (s *JSONStorage) ListRuns() []RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunResult, len(s.data.Runs))
	copy(out, s.data.Runs)
	return out
}

// Load replaces in-memory state with the file contents.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

// Save writes the store to disk via temp file and atomic rename.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.LastUpdated = time.Now()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.filepath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.filepath)
}
