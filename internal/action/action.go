// Package action exposes read-only access to action records. Actions feed the
// fulfillment inference engine; their full lifecycle is managed elsewhere and
// reaches this service only through the record store.
package action

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"qualis/internal/records"
	"qualis/pkg/domain"
	"qualis/pkg/requestcontext"
)

// Action is a corrective or improvement action, possibly raised from an issue.
type Action struct {
	ID             domain.ActionID  `json:"id"`
	Code           string           `json:"code"`
	ProcessID      domain.ProcessID `json:"processId,omitempty"`
	Title          string           `json:"title"`
	Status         string           `json:"status"`
	Origin         string           `json:"origin,omitempty"`
	LinkedIssueIDs []domain.IssueID `json:"linkedIssueIds,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Service caches the action collection per tenant, read-only.
type Service struct {
	store  records.Store
	logger *slog.Logger

	mu      sync.RWMutex
	tenants map[domain.TenantID]*tenantState
}

type tenantState struct {
	loaded  bool
	actions []Action
}

func New(store records.Store, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		tenants: make(map[domain.TenantID]*tenantState),
	}
}

// List returns every action for the tenant.
func (s *Service) List(ctx context.Context) ([]Action, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Action(nil), state.actions...), nil
}

// ByProcess returns the actions linked to one process.
func (s *Service) ByProcess(ctx context.Context, processID domain.ProcessID) ([]Action, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Action, 0, len(all))
	for _, a := range all {
		if a.ProcessID == processID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Reload drops the cached collection so the next read refetches. Used after
// external writers change the actions collection.
func (s *Service) Reload(ctx context.Context) {
	tenant := requestcontext.TenantID(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, tenant)
}

func (s *Service) load(ctx context.Context) (*tenantState, error) {
	tenant := requestcontext.TenantID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tenants[tenant]
	if ok && state.loaded {
		return state, nil
	}
	if !ok {
		state = &tenantState{}
		s.tenants[tenant] = state
	}

	loaded, err := records.FetchAs[Action](ctx, s.store, records.TypeActions)
	if err != nil {
		s.logger.WarnContext(ctx, "action load failed, starting empty",
			"tenant", tenant, "error", err)
		loaded = nil
	}
	state.actions = loaded
	state.loaded = true
	return state, nil
}
