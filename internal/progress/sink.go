package progress

import (
	"context"
	"sync"
)

// Sink persists progress between sessions. Load on a sink that has never
// been written returns an empty State and no error.
type Sink interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// MemorySink keeps the encoded document in memory. SaveErr and LoadErr let
// tests simulate storage failures.
type MemorySink struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	SaveErr error
	LoadErr error
}

func (m *MemorySink) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return State{}, m.LoadErr
	}
	if m.data == nil {
		return NewState(), nil
	}
	return Unmarshal(m.data)
}

func (m *MemorySink) Save(ctx context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	m.data = b
	m.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (m *MemorySink) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
