package records

import (
	"context"
	"encoding/json"
	"sync"

	"qualis/pkg/domain"
	"qualis/pkg/platform/sentinel"
	"qualis/pkg/requestcontext"
)

// InMemory keeps records in process memory, partitioned by tenant. It backs
// demo mode and tests. Fetch preserves insertion order so collection order
// stays chronological.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]map[Type]*collection
}

type collection struct {
	order []string
	byID  map[string]json.RawMessage
}

func NewInMemory() *InMemory {
	return &InMemory{tenants: make(map[domain.TenantID]map[Type]*collection)}
}

func (s *InMemory) coll(tenant domain.TenantID, typ Type, create bool) *collection {
	byType, ok := s.tenants[tenant]
	if !ok {
		if !create {
			return nil
		}
		byType = make(map[Type]*collection)
		s.tenants[tenant] = byType
	}
	c, ok := byType[typ]
	if !ok {
		if !create {
			return nil
		}
		c = &collection{byID: make(map[string]json.RawMessage)}
		byType[typ] = c
	}
	return c
}

func (s *InMemory) Fetch(ctx context.Context, typ Type) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.coll(requestcontext.TenantID(ctx), typ, false)
	if c == nil {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out, nil
}

func (s *InMemory) Create(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(requestcontext.TenantID(ctx), typ, true)
	if _, exists := c.byID[id]; exists {
		return nil, sentinel.ErrConflict
	}
	c.byID[id] = body
	c.order = append(c.order, id)
	return body, nil
}

func (s *InMemory) Update(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(requestcontext.TenantID(ctx), typ, false)
	if c == nil {
		return nil, sentinel.ErrNotFound
	}
	if _, exists := c.byID[id]; !exists {
		return nil, sentinel.ErrNotFound
	}
	c.byID[id] = body
	return body, nil
}

func (s *InMemory) Delete(ctx context.Context, typ Type, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(requestcontext.TenantID(ctx), typ, false)
	if c == nil {
		return sentinel.ErrNotFound
	}
	if _, exists := c.byID[id]; !exists {
		return sentinel.ErrNotFound
	}
	delete(c.byID, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}
