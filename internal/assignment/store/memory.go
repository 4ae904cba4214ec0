// Package store persists the handler roster: an in-memory implementation
// for tests and single-node runs, and a postgres implementation for real
// deployments. Both enforce optimistic versioning on save.
package store

import (
	"context"
	"sync"

	"docgate/internal/assignment"
	"docgate/pkg/platform/sentinel"
)

// Memory keeps the roster in process. Saves bump the version by one and
// reject mismatched expectations, same as the postgres store.
type Memory struct {
	mu     sync.Mutex
	roster assignment.Roster
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith seeds the store with handlers at version 1.
func NewMemoryWith(handlers ...assignment.Handler) *Memory {
	m := &Memory{}
	m.roster = assignment.Roster{
		Handlers: append([]assignment.Handler(nil), handlers...),
		Version:  1,
	}
	return m
}

func (m *Memory) Load(ctx context.Context) (assignment.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.roster
	out.Handlers = append([]assignment.Handler(nil), m.roster.Handlers...)
	return out, nil
}

func (m *Memory) Save(ctx context.Context, roster assignment.Roster, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roster.Version != expectedVersion {
		return sentinel.ErrVersionConflict
	}
	roster.Handlers = append([]assignment.Handler(nil), roster.Handlers...)
	roster.Version = expectedVersion + 1
	m.roster = roster
	return nil
}
