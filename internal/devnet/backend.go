package devnet

import (
	"context"
	"maps"

	"github.com/sasha-s/go-deadlock"

	"github.com/w3f/edunews/internal/ledger"
)

// Backend persists the state and blocks of one ledger.
type Backend interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Head returns the latest block; found is false before the first block.
	Head(ctx context.Context) (ledger.Block, bool, error)

	// Commit atomically applies writes (nil value deletes) and appends b.
	Commit(ctx context.Context, b ledger.Block, writes map[string][]byte) error
}

// MemoryBackend is a volatile Backend.
type MemoryBackend struct {
	mu     deadlock.RWMutex
	values map[string][]byte
	blocks []ledger.Block
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Head(ctx context.Context) (ledger.Block, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.blocks) == 0 {
		return ledger.Block{}, false, nil
	}
	return m.blocks[len(m.blocks)-1], true, nil
}

func (m *MemoryBackend) Commit(ctx context.Context, b ledger.Block, writes map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range writes {
		if v == nil {
			delete(m.values, k)
			continue
		}
		m.values[k] = append([]byte(nil), v...)
	}
	m.blocks = append(m.blocks, b)
	return nil
}

// Set writes a value outside of any block. Tests use it to plant state a
// well-behaved ledger would never produce.
func (m *MemoryBackend) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.values, key)
		return
	}
	m.values[key] = append([]byte(nil), value...)
}

// Snapshot returns a copy of the current state.
func (m *MemoryBackend) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}
