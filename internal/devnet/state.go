package devnet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/ledger"
)

// State is the pending state of one extrinsic: reads fall through to the
// backend, writes stay local until the block is committed.
type State struct {
	ctx     context.Context
	backend Backend
	writes  map[string][]byte
}

func newState(ctx context.Context, b Backend) *State {
	return &State{ctx: ctx, backend: b, writes: make(map[string][]byte)}
}

func (s *State) Get(q ledger.Query) ([]byte, bool, error) {
	key := q.Key()
	if v, ok := s.writes[key]; ok {
		return v, v != nil, nil
	}
	return s.backend.Get(s.ctx, key)
}

func (s *State) Put(q ledger.Query, v []byte) { s.writes[q.Key()] = v }

func (s *State) Delete(q ledger.Query) { s.writes[q.Key()] = nil }

// Env is what a pallet sees while dispatching a call.
type Env struct {
	State     *State
	Origin    ir.Address
	Block     uint64
	Timestamp int64
}

func load[T any](s *State, q ledger.Query) (T, bool, error) {
	var out T
	raw, found, err := s.Get(q)
	if err != nil || !found {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", q, err)
	}
	return out, true, nil
}

func save(s *State, q ledger.Query, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", q, err)
	}
	s.Put(q, raw)
	return nil
}
