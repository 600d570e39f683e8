package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store persists runs between steps.
type Store interface {
	// Create stores a new run, failing with ErrRunExists on ID collision.
	Create(ctx context.Context, run *Run) error
	// Load returns a copy of the stored run or ErrRunNotFound.
	Load(ctx context.Context, id string) (*Run, error)
	// Save overwrites a run.
	Save(ctx context.Context, run *Run) error
	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error
}

// Compile-time interface compliance checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// MemoryStore keeps runs in process memory as JSON, so that loaded runs
// never alias the orchestrator's copy.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]byte)}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, run *Run) error {
	data, err := marshalRun(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}
	s.runs[run.ID] = data
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	data, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return unmarshalRun(data)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, run *Run) error {
	data, err := marshalRun(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = data
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

func marshalRun(run *Run) ([]byte, error) {
	if run == nil || run.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidRun)
	}
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}
	return data, nil
}

func unmarshalRun(data []byte) (*Run, error) {
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	if run.Steps == nil {
		run.Steps = make(map[string]time.Time)
	}
	return &run, nil
}
