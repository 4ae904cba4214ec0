package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "docgate/pkg/platform/audit"
	"docgate/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		CaseID: "CC2024010001",
		Actor:  "system",
		Action: string(audit.EventCaseCreated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := store.ListByCase(context.Background(), "CC2024010001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCaseCreated), events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	event := audit.Event{
		CaseID: "CC2024010002",
		Actor:  "system",
		Action: string(audit.EventCaseReevaluated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Close flushes the buffer.
	pub.Close()

	events, err := store.ListByCase(context.Background(), "CC2024010002")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

// appendTracker records whether Append ran inside the emitting goroutine.
type appendTracker struct {
	inner *memory.InMemoryStore
	sync  bool
}

func (a *appendTracker) Append(ctx context.Context, event audit.Event) error {
	a.sync = true
	return a.inner.Append(ctx, event)
}

func TestPublisher_ComplianceBypassesBuffer(t *testing.T) {
	store := &appendTracker{inner: memory.NewInMemoryStore()}
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		CaseID: "CC2024010004",
		Actor:  "Chang Hsiao-Ming",
		Action: string(audit.EventCaseSubmitted),
		Reason: "documents verified",
	})
	require.NoError(t, err)

	// The compliance trail must not ride the lossy buffer: the append has
	// happened by the time Emit returns, with no Close and no flush.
	assert.True(t, store.sync, "compliance event must be appended synchronously")
	events, err := store.inner.ListByCase(context.Background(), "CC2024010004")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_CategoryNotOverwritten(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		CaseID:    "CC2024010003",
		Action:    string(audit.EventCaseCreated),
		Category:  audit.CategorySecurity,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	events, err := store.ListByCase(context.Background(), "CC2024010003")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), events[0].Timestamp)
}
