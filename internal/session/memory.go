package session

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	createdAt   time.Time
	lastUpdated time.Time
	turns       []Turn
}

// MemoryStore keeps sessions in a process-local map. The newest maxTurns
// turns are retained per session; older turns are evicted oldest-first.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryRecord
	maxTurns int
}

func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryRecord),
		maxTurns: maxTurns,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	out := make([]Turn, len(rec.turns))
	copy(out, rec.turns)
	return out, nil
}

func (m *MemoryStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	rec, ok := m.sessions[id]
	if !ok {
		rec = &memoryRecord{createdAt: now}
		m.sessions[id] = rec
	}
	rec.turns = append(rec.turns, turns...)
	rec.lastUpdated = now
	if m.maxTurns > 0 && len(rec.turns) > m.maxTurns {
		rec.turns = rec.turns[len(rec.turns)-m.maxTurns:]
	}
	return nil
}

func (m *MemoryStore) Info(ctx context.Context, id string) (*Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &Info{
		SessionID:   id,
		CreatedAt:   rec.createdAt,
		LastUpdated: rec.lastUpdated,
		TurnCount:   len(rec.turns),
	}, nil
}

func (m *MemoryStore) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	return nil
}
