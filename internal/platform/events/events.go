// Package events is a small in-process pub/sub bus. Services publish record
// change and persistence failure events; observers (logging, UI push, future
// integrations) subscribe without coupling services to any particular sink.
package events

import (
	"sync"
	"time"

	"qualis/pkg/domain"
)

// Kind discriminates bus events.
type Kind string

const (
	KindRecordCreated Kind = "record_created"
	KindRecordUpdated Kind = "record_updated"
	KindRecordDeleted Kind = "record_deleted"
	KindWriteFailed   Kind = "write_failed"
)

// Event describes one record-level change.
type Event struct {
	Kind       Kind
	Tenant     domain.TenantID
	RecordType string
	RecordID   string
	At         time.Time
	Err        error
}

// Handler receives published events. Handlers must not block; slow consumers
// should buffer internally.
type Handler func(Event)

// Bus fans events out to subscribers. Subscription order is delivery order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every subscriber synchronously.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}
