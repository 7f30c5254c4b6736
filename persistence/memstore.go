package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/active-inference/aifcore/aierrors"
)

var _ Store = (*MemStore)(nil)

// MemStore is the default in-memory Store, gob-encoding each
// AgentSnapshot the same way main.go round trips a network.MultiHeadMLP
// through gob.NewEncoder/NewDecoder. Keeping the stored form as bytes
// rather than a live AgentSnapshot value forces the same
// encode/decode path a durable backend would use, so a schema mismatch
// is caught here too rather than only in production.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

// SaveAgent implements Store.
func (s *MemStore) SaveAgent(ctx context.Context, snap AgentSnapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return aierrors.New(aierrors.ExternalFailure, "persistence.MemStore.SaveAgent", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.ID] = buf.Bytes()
	return nil
}

// LoadAgent implements Store.
func (s *MemStore) LoadAgent(ctx context.Context, id string) (AgentSnapshot, error) {
	s.mu.Lock()
	raw, ok := s.data[id]
	s.mu.Unlock()
	if !ok {
		return AgentSnapshot{}, aierrors.New(aierrors.ExternalFailure, "persistence.MemStore.LoadAgent", nil)
	}
	var snap AgentSnapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return AgentSnapshot{}, aierrors.New(aierrors.ExternalFailure, "persistence.MemStore.LoadAgent", err)
	}
	if snap.SchemaVersion != CurrentSchemaVersion {
		return AgentSnapshot{}, aierrors.New(aierrors.ExternalFailure, "persistence.MemStore.LoadAgent", fmt.Errorf("schema version %d, want %d", snap.SchemaVersion, CurrentSchemaVersion))
	}
	return snap, nil
}

// ListAgents implements Store.
func (s *MemStore) ListAgents(ctx context.Context, filter Filter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, raw := range s.data {
		var snap AgentSnapshot
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
			return nil, aierrors.New(aierrors.ExternalFailure, "persistence.MemStore.ListAgents", err)
		}
		if filter.matches(snap) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DeleteAgent implements Store.
func (s *MemStore) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return aierrors.New(aierrors.ExternalFailure, "persistence.MemStore.DeleteAgent", nil)
	}
	delete(s.data, id)
	return nil
}

// exportAll returns a copy of the raw gob-encoded entries, for
// FileStore to flush to disk in one shot.
func (s *MemStore) exportAll() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// importAll replaces the store's contents with data, for FileStore to
// seed from a previously saved file.
func (s *MemStore) importAll(data map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}
