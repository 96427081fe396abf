package storage

import "fmt"

// MockStorage implements Interface for testing.
type MockStorage struct {
	saveError     error
	loadError     error
	runs          []RunResult
	saveCallCount int
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage for testing.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// SetSaveError makes subsequent saves fail.
func (m *MockStorage) SetSaveError(err error) { m.saveError = err }

// SetLoadError makes subsequent loads fail.
func (m *MockStorage) SetLoadError(err error) { m.loadError = err }

// SaveCallCount reports how many times Save ran.
func (m *MockStorage) SaveCallCount() int { return m.saveCallCount }

// SaveRun appends the run in memory.
func (m *MockStorage) SaveRun(run *RunResult) error {
	if m.saveError != nil {
		return m.saveError
	}
	if run.ID == "" {
		return fmt.Errorf("run has empty ID")
	}
	m.runs = append(m.runs, *run)
	m.saveCallCount++
	return nil
}

// GetRun returns a copy of the stored run.
func (m *MockStorage) GetRun(id string) (*RunResult, error) {
	for _, r := range m.runs {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// ListRuns returns copies of all stored runs.
func (m *MockStorage) ListRuns() []RunResult {
	out := make([]RunResult, len(m.runs))
	copy(out, m.runs)
	return out
}

// Save is a no-op apart from error injection.
func (m *MockStorage) Save() error {
	if m.saveError != nil {
		return m.saveError
	}
	m.saveCallCount++
	return nil
}

// Load is a no-op apart from error injection.
func (m *MockStorage) Load() error {
	return m.loadError
}
