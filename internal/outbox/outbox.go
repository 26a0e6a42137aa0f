// Package outbox queues record writes behind the in-memory mutation. Services
// mutate their collections synchronously and enqueue the matching store write
// here; a worker retries with exponential backoff and surfaces exhausted
// writes through metrics, the event bus, and the admin snapshot instead of a
// silent log line.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"qualis/internal/platform/events"
	"qualis/internal/platform/metrics"
	"qualis/internal/records"
	"qualis/pkg/domain"
	"qualis/pkg/platform/sentinel"
	"qualis/pkg/requestcontext"
)

// Op is the store operation an entry performs.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entry is one queued write.
type Entry struct {
	ID          string          `json:"id"`
	Tenant      domain.TenantID `json:"tenant"`
	Op          Op              `json:"op"`
	Type        records.Type    `json:"type"`
	RecordID    string          `json:"recordId"`
	Payload     json.RawMessage `json:"-"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"lastError,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
	NextAttempt time.Time       `json:"nextAttempt"`
}

// Snapshot is the admin-facing view of outbox state.
type Snapshot struct {
	Pending []Entry `json:"pending"`
	Failed  []Entry `json:"failed"`
}

// Outbox owns the pending queue and the retry worker.
type Outbox struct {
	store       records.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	bus         *events.Bus
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	pending []*Entry
	failed  []*Entry
	wake    chan struct{}
}

// New builds an outbox draining into store. interval is the base retry delay;
// maxAttempts bounds retries before an entry is parked as failed.
func New(store records.Store, logger *slog.Logger, m *metrics.Metrics, bus *events.Bus, interval time.Duration, maxAttempts int) *Outbox {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &Outbox{
		store:       store,
		logger:      logger,
		metrics:     m,
		bus:         bus,
		interval:    interval,
		maxAttempts: maxAttempts,
		wake:        make(chan struct{}, 1),
	}
}

// Enqueue schedules a write. The tenant is captured from ctx so the worker can
// replay it outside the request lifetime. record may be nil for deletes.
func (o *Outbox) Enqueue(ctx context.Context, op Op, typ records.Type, recordID string, record any) error {
	var payload json.RawMessage
	if record != nil {
		encoded, err := json.Marshal(record)
		if err != nil {
			return err
		}
		payload = encoded
	}

	now := requestcontext.Now(ctx)
	entry := &Entry{
		ID:          domain.NewID(),
		Tenant:      requestcontext.TenantID(ctx),
		Op:          op,
		Type:        typ,
		RecordID:    recordID,
		Payload:     payload,
		EnqueuedAt:  now,
		NextAttempt: now,
	}

	o.mu.Lock()
	o.pending = append(o.pending, entry)
	depth := len(o.pending)
	o.mu.Unlock()

	o.metrics.OutboxDepth.Set(float64(depth))
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run drains the queue until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.drain(ctx, false)
		case <-o.wake:
			o.drain(ctx, false)
		}
	}
}

// Flush attempts every pending entry immediately, ignoring backoff schedules.
// Used on shutdown and in tests.
func (o *Outbox) Flush(ctx context.Context) {
	o.drain(ctx, true)
}

// State returns a copy of the pending and failed entries.
func (o *Outbox) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		Pending: make([]Entry, 0, len(o.pending)),
		Failed:  make([]Entry, 0, len(o.failed)),
	}
	for _, e := range o.pending {
		snap.Pending = append(snap.Pending, *e)
	}
	for _, e := range o.failed {
		snap.Failed = append(snap.Failed, *e)
	}
	return snap
}

func (o *Outbox) drain(ctx context.Context, force bool) {
	now := time.Now()

	o.mu.Lock()
	due := make([]*Entry, 0, len(o.pending))
	rest := o.pending[:0]
	for _, e := range o.pending {
		if force || !e.NextAttempt.After(now) {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	o.pending = rest
	o.mu.Unlock()

	for _, e := range due {
		o.attempt(ctx, e)
	}

	o.mu.Lock()
	o.metrics.OutboxDepth.Set(float64(len(o.pending)))
	o.mu.Unlock()
}

func (o *Outbox) attempt(ctx context.Context, e *Entry) {
	writeCtx := requestcontext.WithTenantID(ctx, e.Tenant)

	err := o.write(writeCtx, e)
	if err == nil {
		o.metrics.RecordsPersisted.WithLabelValues(string(e.Type)).Inc()
		return
	}

	e.Attempts++
	e.LastError = err.Error()
	if e.Attempts >= o.maxAttempts {
		o.logger.Error("record write abandoned",
			"type", e.Type, "record_id", e.RecordID, "op", e.Op,
			"attempts", e.Attempts, "error", err,
		)
		o.metrics.PersistFailures.WithLabelValues(string(e.Type)).Inc()
		o.bus.Publish(events.Event{
			Kind:       events.KindWriteFailed,
			Tenant:     e.Tenant,
			RecordType: string(e.Type),
			RecordID:   e.RecordID,
			At:         time.Now(),
			Err:        err,
		})
		o.mu.Lock()
		o.failed = append(o.failed, e)
		o.mu.Unlock()
		return
	}

	// Exponential backoff from the base interval, capped at one minute.
	delay := o.interval << (e.Attempts - 1)
	if delay > time.Minute {
		delay = time.Minute
	}
	e.NextAttempt = time.Now().Add(delay)
	o.metrics.OutboxRetries.Inc()
	o.logger.Warn("record write retry scheduled",
		"type", e.Type, "record_id", e.RecordID, "op", e.Op,
		"attempt", e.Attempts, "error", err,
	)

	o.mu.Lock()
	o.pending = append(o.pending, e)
	o.mu.Unlock()
}

func (o *Outbox) write(ctx context.Context, e *Entry) error {
	switch e.Op {
	case OpCreate:
		_, err := o.store.Create(ctx, e.Type, e.RecordID, e.Payload)
		if errors.Is(err, sentinel.ErrConflict) {
			// Record already present (reseed or replay); converge via update.
			_, err = o.store.Update(ctx, e.Type, e.RecordID, e.Payload)
		}
		return err
	case OpUpdate:
		_, err := o.store.Update(ctx, e.Type, e.RecordID, e.Payload)
		if errors.Is(err, sentinel.ErrNotFound) {
			_, err = o.store.Create(ctx, e.Type, e.RecordID, e.Payload)
		}
		return err
	case OpDelete:
		err := o.store.Delete(ctx, e.Type, e.RecordID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	default:
		return errors.New("unknown outbox operation")
	}
}
