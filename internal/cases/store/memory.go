// Package store persists cases with optimistic versioning: an in-memory
// implementation for tests and single-node runs, and a postgres
// implementation for real deployments.
package store

import (
	"context"
	"sort"
	"sync"

	"docgate/internal/cases"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/sentinel"
)

// Memory keeps cases in process. Every read and write deep-copies, so
// callers never share state with the store.
type Memory struct {
	mu    sync.RWMutex
	cases map[string]*cases.Case
}

func NewMemory() *Memory {
	return &Memory{cases: make(map[string]*cases.Case)}
}

func (m *Memory) Create(ctx context.Context, c *cases.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cases[c.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "case %s already exists", c.ID)
	}
	stored := c.Clone()
	stored.Version = 1
	m.cases[c.ID] = stored
	c.Version = 1
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*cases.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cases[id]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "case %s not found", id)
	}
	return c.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, c *cases.Case, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.cases[c.ID]
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "case %s not found", c.ID)
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrVersionConflict
	}
	next := c.Clone()
	next.Version = expectedVersion + 1
	m.cases[c.ID] = next
	c.Version = next.Version
	return nil
}

func (m *Memory) Query(ctx context.Context, filter cases.Filter) ([]*cases.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*cases.Case, 0)
	for _, c := range m.cases {
		if filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return filter.Less(out[i], out[j]) })
	return out, nil
}
