// Package service implements the process lifecycle manager: it owns the
// per-tenant process collections, enforces the governance-activity invariant
// on every mutation, and feeds writes through the outbox.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"qualis/internal/outbox"
	"qualis/internal/platform/events"
	"qualis/internal/platform/metrics"
	"qualis/internal/process/models"
	"qualis/internal/records"
	"qualis/internal/sequence"
	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
	"qualis/pkg/requestcontext"
)

// Service is the process lifecycle manager.
type Service struct {
	store    records.Store
	outbox   *outbox.Outbox
	counter  sequence.Counter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	bus      *events.Bus
	seedDemo bool

	mu      sync.RWMutex
	tenants map[domain.TenantID]*tenantState
}

// Collections are loaded once per tenant; the loaded flag guards against
// duplicate concurrent load sequences.
type tenantState struct {
	loaded bool
	order  []domain.ProcessID
	byID   map[domain.ProcessID]*models.Process
}

// New constructs the process service.
func New(store records.Store, ob *outbox.Outbox, counter sequence.Counter, logger *slog.Logger, m *metrics.Metrics, bus *events.Bus, seedDemo bool) *Service {
	return &Service{
		store:    store,
		outbox:   ob,
		counter:  counter,
		logger:   logger,
		metrics:  m,
		bus:      bus,
		seedDemo: seedDemo,
		tenants:  make(map[domain.TenantID]*tenantState),
	}
}

// CreateInput carries the caller-supplied fields for a new process.
type CreateInput struct {
	Code       string                  `json:"code"`
	Name       string                  `json:"name"`
	Type       models.ProcessType      `json:"type"`
	Activities []models.ActivityRecord `json:"activities"`
}

// UpdatePatch is a partial update; nil fields are left untouched.
type UpdatePatch struct {
	Name       *string                  `json:"name"`
	Type       *models.ProcessType      `json:"type"`
	Status     *models.Status           `json:"status"`
	Activities *[]models.ActivityRecord `json:"activities"`
}

// Create assigns identity and code, applies the governance invariant, stores
// the process in memory, and schedules the persistence write.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Process, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	code := input.Code
	if code == "" {
		code, err = s.nextCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	p, err := models.NewProcess(domain.ProcessID(domain.NewID()), code, input.Name, input.Type, input.Activities, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	state.order = append(state.order, p.ID)
	state.byID[p.ID] = p
	s.mu.Unlock()

	s.persist(ctx, outbox.OpCreate, p)
	s.metrics.ProcessesCreated.Inc()
	s.bus.Publish(events.Event{
		Kind:       events.KindRecordCreated,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(records.TypeProcesses),
		RecordID:   p.ID.String(),
		At:         now,
	})
	return p.Clone(), nil
}

// Update applies a partial patch, re-enforcing the governance invariant when
// activities are replaced, and always bumps the revision.
func (s *Service) Update(ctx context.Context, id domain.ProcessID, patch UpdatePatch, revisionNote string) (*models.Process, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if revisionNote == "" {
		revisionNote = "Process updated"
	}

	s.mu.Lock()
	p, ok := state.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "process not found")
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			s.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeBadRequest, "process name cannot be empty")
		}
		p.Name = *patch.Name
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Activities != nil {
		p.Activities = models.EnsureGovernanceActivity(*patch.Activities)
	}
	p.BumpRevision(requestcontext.Now(ctx), revisionNote)
	clone := p.Clone()
	s.mu.Unlock()

	s.persist(ctx, outbox.OpUpdate, clone)
	s.bus.Publish(events.Event{
		Kind:       events.KindRecordUpdated,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(records.TypeProcesses),
		RecordID:   id.String(),
		At:         clone.RevisionDate,
	})
	return clone, nil
}

// Archive transitions the process to archived status.
func (s *Service) Archive(ctx context.Context, id domain.ProcessID) (*models.Process, error) {
	archived := models.StatusArchived
	return s.Update(ctx, id, UpdatePatch{Status: &archived}, "Process archived")
}

// GetByID returns one process.
func (s *Service) GetByID(ctx context.Context, id domain.ProcessID) (*models.Process, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := state.byID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "process not found")
	}
	return p.Clone(), nil
}

// List returns every process in collection order.
func (s *Service) List(ctx context.Context) ([]*models.Process, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Process, 0, len(state.order))
	for _, id := range state.order {
		out = append(out, state.byID[id].Clone())
	}
	return out, nil
}

// Active returns processes with active status.
func (s *Service) Active(ctx context.Context) ([]*models.Process, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Process, 0, len(all))
	for _, p := range all {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) nextCode(ctx context.Context) (string, error) {
	key := sequence.Key(requestcontext.TenantID(ctx), string(records.TypeProcesses))
	n, err := s.counter.Next(ctx, key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reserve process code")
	}
	return fmt.Sprintf("PRO-%03d", n), nil
}

func (s *Service) persist(ctx context.Context, op outbox.Op, p *models.Process) {
	if err := s.outbox.Enqueue(ctx, op, records.TypeProcesses, p.ID.String(), p); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue process write",
			"process_id", p.ID, "op", op, "error", err)
	}
}

// load fetches the tenant's collection on first use. A store failure falls
// back to the seeded demo dataset so the application stays usable; an empty
// store is seeded with the default process catalog.
func (s *Service) load(ctx context.Context) (*tenantState, error) {
	tenant := requestcontext.TenantID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tenants[tenant]
	if ok && state.loaded {
		return state, nil
	}
	if !ok {
		state = &tenantState{byID: make(map[domain.ProcessID]*models.Process)}
		s.tenants[tenant] = state
	}

	loaded, err := records.FetchAs[models.Process](ctx, s.store, records.TypeProcesses)
	if err != nil {
		s.logger.WarnContext(ctx, "process load failed, falling back to seeded defaults",
			"tenant", tenant, "error", err)
		loaded = nil
	}

	if len(loaded) == 0 && s.seedDemo {
		seeded := SeedDefaults(requestcontext.Now(ctx))
		for _, p := range seeded {
			state.order = append(state.order, p.ID)
			state.byID[p.ID] = p
			s.persist(ctx, outbox.OpCreate, p)
		}
		if serr := s.counter.EnsureAtLeast(ctx, sequence.Key(tenant, string(records.TypeProcesses)), int64(len(seeded))); serr != nil {
			s.logger.WarnContext(ctx, "failed to seed process counter", "error", serr)
		}
		state.loaded = true
		return state, nil
	}

	for i := range loaded {
		p := loaded[i]
		// Re-apply the invariant on load so records written by older versions
		// or foreign writers still satisfy it.
		p.Activities = models.EnsureGovernanceActivity(p.Activities)
		state.order = append(state.order, p.ID)
		state.byID[p.ID] = &p
	}
	if err := s.counter.EnsureAtLeast(ctx, sequence.Key(tenant, string(records.TypeProcesses)), int64(len(loaded))); err != nil {
		s.logger.WarnContext(ctx, "failed to align process counter", "error", err)
	}
	state.loaded = true
	return state, nil
}
