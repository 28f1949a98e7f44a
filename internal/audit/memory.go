package audit

import (
	"context"
	"sync"

	"netgate/internal/constants"
	"netgate/internal/gateway"
)

// MemoryStore keeps the newest decisions in a fixed-size ring so the
// operations API can answer without a database. It is the default store when
// PostgreSQL is not configured.
type MemoryStore struct {
	mu        sync.RWMutex
	decisions []gateway.Decision
	next      int
	full      bool
}

func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = constants.DecisionRingSize
	}
	return &MemoryStore{decisions: make([]gateway.Decision, size)}
}

func (m *MemoryStore) Record(_ context.Context, decision gateway.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.decisions[m.next] = decision
	m.next = (m.next + 1) % len(m.decisions)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]gateway.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.next
	if m.full {
		count = len(m.decisions)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]gateway.Decision, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.decisions)) % len(m.decisions)
		out = append(out, m.decisions[idx])
	}
	return out, nil
}
