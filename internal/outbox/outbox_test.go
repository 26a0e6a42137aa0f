package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualis/internal/platform/events"
	"qualis/internal/platform/metrics"
	"qualis/internal/records"
	"qualis/pkg/platform/sentinel"
)

// flakyStore fails the first n writes, then delegates to an in-memory store.
type flakyStore struct {
	mu        sync.Mutex
	failures  int
	delegated *records.InMemory
}

func (f *flakyStore) takeFailure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return true
	}
	return false
}

func (f *flakyStore) Fetch(ctx context.Context, typ records.Type) ([]json.RawMessage, error) {
	return f.delegated.Fetch(ctx, typ)
}

func (f *flakyStore) Create(ctx context.Context, typ records.Type, id string, record any) (json.RawMessage, error) {
	if f.takeFailure() {
		return nil, sentinel.ErrUnavailable
	}
	return f.delegated.Create(ctx, typ, id, record)
}

func (f *flakyStore) Update(ctx context.Context, typ records.Type, id string, record any) (json.RawMessage, error) {
	if f.takeFailure() {
		return nil, sentinel.ErrUnavailable
	}
	return f.delegated.Update(ctx, typ, id, record)
}

func (f *flakyStore) Delete(ctx context.Context, typ records.Type, id string) error {
	if f.takeFailure() {
		return sentinel.ErrUnavailable
	}
	return f.delegated.Delete(ctx, typ, id)
}

func newTestOutbox(store records.Store, maxAttempts int) (*Outbox, *events.Bus) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus()
	m := metrics.NewWith(prometheus.NewRegistry())
	return New(store, logger, m, bus, 10*time.Millisecond, maxAttempts), bus
}

func TestOutboxWritesThrough(t *testing.T) {
	mem := records.NewInMemory()
	ob, _ := newTestOutbox(mem, 3)
	ctx := context.Background()

	require.NoError(t, ob.Enqueue(ctx, OpCreate, records.TypeProcesses, "p1", map[string]string{"id": "p1"}))
	ob.Flush(ctx)

	raws, err := mem.Fetch(ctx, records.TypeProcesses)
	require.NoError(t, err)
	assert.Len(t, raws, 1)
	assert.Empty(t, ob.State().Pending)
}

func TestOutboxRetriesUntilSuccess(t *testing.T) {
	store := &flakyStore{failures: 2, delegated: records.NewInMemory()}
	ob, _ := newTestOutbox(store, 5)
	ctx := context.Background()

	require.NoError(t, ob.Enqueue(ctx, OpCreate, records.TypeIssues, "i1", map[string]string{"id": "i1"}))

	// First two flushes fail, third succeeds.
	ob.Flush(ctx)
	ob.Flush(ctx)
	assert.Len(t, ob.State().Pending, 1)
	ob.Flush(ctx)

	raws, err := store.delegated.Fetch(ctx, records.TypeIssues)
	require.NoError(t, err)
	assert.Len(t, raws, 1)
	assert.Empty(t, ob.State().Pending)
	assert.Empty(t, ob.State().Failed)
}

func TestOutboxParksEntryAfterMaxAttemptsAndPublishesEvent(t *testing.T) {
	store := &flakyStore{failures: 100, delegated: records.NewInMemory()}
	ob, bus := newTestOutbox(store, 2)

	var gotEvents []events.Event
	bus.Subscribe(func(e events.Event) { gotEvents = append(gotEvents, e) })

	ctx := context.Background()
	require.NoError(t, ob.Enqueue(ctx, OpUpdate, records.TypeProcesses, "p9", map[string]string{"id": "p9"}))
	ob.Flush(ctx)
	ob.Flush(ctx)

	state := ob.State()
	assert.Empty(t, state.Pending)
	require.Len(t, state.Failed, 1)
	assert.Equal(t, "p9", state.Failed[0].RecordID)
	assert.Equal(t, 2, state.Failed[0].Attempts)
	assert.NotEmpty(t, state.Failed[0].LastError)

	require.Len(t, gotEvents, 1)
	assert.Equal(t, events.KindWriteFailed, gotEvents[0].Kind)
	assert.True(t, errors.Is(gotEvents[0].Err, sentinel.ErrUnavailable))
}

func TestOutboxCreateConvergesToUpdateOnConflict(t *testing.T) {
	mem := records.NewInMemory()
	ctx := context.Background()
	_, err := mem.Create(ctx, records.TypeProcesses, "p1", map[string]string{"id": "p1", "name": "old"})
	require.NoError(t, err)

	ob, _ := newTestOutbox(mem, 3)
	require.NoError(t, ob.Enqueue(ctx, OpCreate, records.TypeProcesses, "p1", map[string]string{"id": "p1", "name": "new"}))
	ob.Flush(ctx)

	assert.Empty(t, ob.State().Pending)
	assert.Empty(t, ob.State().Failed)

	raws, err := mem.Fetch(ctx, records.TypeProcesses)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	var got map[string]string
	require.NoError(t, json.Unmarshal(raws[0], &got))
	assert.Equal(t, "new", got["name"])
}

func TestOutboxDeleteOfMissingRecordIsIdempotent(t *testing.T) {
	ob, _ := newTestOutbox(records.NewInMemory(), 3)
	ctx := context.Background()

	require.NoError(t, ob.Enqueue(ctx, OpDelete, records.TypeActions, "ghost", nil))
	ob.Flush(ctx)

	assert.Empty(t, ob.State().Pending)
	assert.Empty(t, ob.State().Failed)
}

func TestOutboxRunDrainsInBackground(t *testing.T) {
	mem := records.NewInMemory()
	ob, _ := newTestOutbox(mem, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ob.Run(ctx)
		close(done)
	}()

	require.NoError(t, ob.Enqueue(context.Background(), OpCreate, records.TypeKPIs, "k1", map[string]string{"id": "k1"}))

	require.Eventually(t, func() bool {
		raws, err := mem.Fetch(context.Background(), records.TypeKPIs)
		return err == nil && len(raws) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
