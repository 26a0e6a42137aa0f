package objective

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qualis/internal/outbox"
	"qualis/internal/platform/events"
	"qualis/internal/records"
	"qualis/internal/sequence"
	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
	"qualis/pkg/requestcontext"
)

// Service owns the objective and KPI collections per tenant.
type Service struct {
	store   records.Store
	outbox  *outbox.Outbox
	counter sequence.Counter
	logger  *slog.Logger
	bus     *events.Bus

	mu      sync.RWMutex
	tenants map[domain.TenantID]*tenantState
}

type tenantState struct {
	loaded         bool
	objectiveOrder []domain.ObjectiveID
	objectives     map[domain.ObjectiveID]*Objective
	kpiOrder       []domain.KPIID
	kpis           map[domain.KPIID]*KPI
}

// New constructs the objective/KPI service.
func New(store records.Store, ob *outbox.Outbox, counter sequence.Counter, logger *slog.Logger, bus *events.Bus) *Service {
	return &Service{
		store:   store,
		outbox:  ob,
		counter: counter,
		logger:  logger,
		bus:     bus,
		tenants: make(map[domain.TenantID]*tenantState),
	}
}

// ObjectiveInput carries caller-supplied fields for a new objective.
type ObjectiveInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ProcessID   domain.ProcessID `json:"processId"`
	TargetDate  *time.Time       `json:"targetDate"`
}

// ObjectivePatch is a partial update; nil fields are left untouched.
type ObjectivePatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Status      *ObjectiveStatus `json:"status"`
	TargetDate  *time.Time       `json:"targetDate"`
}

// CreateObjective stores a new open objective.
func (s *Service) CreateObjective(ctx context.Context, input ObjectiveInput) (*Objective, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "objective title is required")
	}

	now := requestcontext.Now(ctx)
	o := &Objective{
		ID:          domain.ObjectiveID(domain.NewID()),
		Title:       input.Title,
		Description: input.Description,
		ProcessID:   input.ProcessID,
		Status:      StatusOpen,
		TargetDate:  input.TargetDate,
		CreatedAt:   now,
	}
	o.InitRevision(now, "Objective created")

	s.mu.Lock()
	state.objectiveOrder = append(state.objectiveOrder, o.ID)
	state.objectives[o.ID] = o
	s.mu.Unlock()

	s.persist(ctx, outbox.OpCreate, records.TypeObjectives, o.ID.String(), o)
	s.publish(ctx, events.KindRecordCreated, records.TypeObjectives, o.ID.String(), now)
	return o.Clone(), nil
}

// UpdateObjective applies a partial patch and bumps the revision.
func (s *Service) UpdateObjective(ctx context.Context, id domain.ObjectiveID, patch ObjectivePatch, revisionNote string) (*Objective, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if revisionNote == "" {
		revisionNote = "Objective updated"
	}

	s.mu.Lock()
	o, ok := state.objectives[id]
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "objective not found")
	}
	if patch.Title != nil {
		if *patch.Title == "" {
			s.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeBadRequest, "objective title cannot be empty")
		}
		o.Title = *patch.Title
	}
	if patch.Description != nil {
		o.Description = *patch.Description
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.TargetDate != nil {
		t := *patch.TargetDate
		o.TargetDate = &t
	}
	o.BumpRevision(requestcontext.Now(ctx), revisionNote)
	clone := o.Clone()
	s.mu.Unlock()

	s.persist(ctx, outbox.OpUpdate, records.TypeObjectives, id.String(), clone)
	s.publish(ctx, events.KindRecordUpdated, records.TypeObjectives, id.String(), clone.RevisionDate)
	return clone, nil
}

// GetObjective returns one objective.
func (s *Service) GetObjective(ctx context.Context, id domain.ObjectiveID) (*Objective, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := state.objectives[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "objective not found")
	}
	return o.Clone(), nil
}

// ListObjectives returns every objective in collection order.
func (s *Service) ListObjectives(ctx context.Context) ([]*Objective, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Objective, 0, len(state.objectiveOrder))
	for _, id := range state.objectiveOrder {
		out = append(out, state.objectives[id].Clone())
	}
	return out, nil
}

// KPIInput carries caller-supplied fields for a new KPI.
type KPIInput struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	ObjectiveID domain.ObjectiveID `json:"objectiveId"`
	Unit        string             `json:"unit"`
	Target      float64            `json:"target"`
	Current     float64            `json:"current"`
}

// KPIPatch is a partial update; nil fields are left untouched.
type KPIPatch struct {
	Name    *string  `json:"name"`
	Unit    *string  `json:"unit"`
	Target  *float64 `json:"target"`
	Current *float64 `json:"current"`
}

// CreateKPI stores a new KPI, generating a KPI-NNN code when none is supplied.
func (s *Service) CreateKPI(ctx context.Context, input KPIInput) (*KPI, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "kpi name is required")
	}
	if input.ObjectiveID != "" {
		if _, gerr := s.GetObjective(ctx, input.ObjectiveID); gerr != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "kpi references an unknown objective")
		}
	}

	code := input.Code
	if code == "" {
		code, err = s.nextKPICode(ctx)
		if err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	k := &KPI{
		ID:          domain.KPIID(domain.NewID()),
		Code:        code,
		Name:        input.Name,
		ObjectiveID: input.ObjectiveID,
		Unit:        input.Unit,
		Target:      input.Target,
		Current:     input.Current,
		CreatedAt:   now,
	}
	k.InitRevision(now, "KPI created")

	s.mu.Lock()
	state.kpiOrder = append(state.kpiOrder, k.ID)
	state.kpis[k.ID] = k
	s.mu.Unlock()

	s.persist(ctx, outbox.OpCreate, records.TypeKPIs, k.ID.String(), k)
	s.publish(ctx, events.KindRecordCreated, records.TypeKPIs, k.ID.String(), now)
	return k.Clone(), nil
}

// UpdateKPI applies a partial patch and bumps the revision. Updating Current
// is how measurements are recorded.
func (s *Service) UpdateKPI(ctx context.Context, id domain.KPIID, patch KPIPatch, revisionNote string) (*KPI, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if revisionNote == "" {
		revisionNote = "KPI updated"
	}

	s.mu.Lock()
	k, ok := state.kpis[id]
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "kpi not found")
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			s.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeBadRequest, "kpi name cannot be empty")
		}
		k.Name = *patch.Name
	}
	if patch.Unit != nil {
		k.Unit = *patch.Unit
	}
	if patch.Target != nil {
		k.Target = *patch.Target
	}
	if patch.Current != nil {
		k.Current = *patch.Current
	}
	k.BumpRevision(requestcontext.Now(ctx), revisionNote)
	clone := k.Clone()
	s.mu.Unlock()

	s.persist(ctx, outbox.OpUpdate, records.TypeKPIs, id.String(), clone)
	s.publish(ctx, events.KindRecordUpdated, records.TypeKPIs, id.String(), clone.RevisionDate)
	return clone, nil
}

// GetKPI returns one KPI.
func (s *Service) GetKPI(ctx context.Context, id domain.KPIID) (*KPI, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := state.kpis[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "kpi not found")
	}
	return k.Clone(), nil
}

// ListKPIs returns every KPI in collection order.
func (s *Service) ListKPIs(ctx context.Context) ([]*KPI, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*KPI, 0, len(state.kpiOrder))
	for _, id := range state.kpiOrder {
		out = append(out, state.kpis[id].Clone())
	}
	return out, nil
}

// KPIsByObjective returns the KPIs attached to one objective.
func (s *Service) KPIsByObjective(ctx context.Context, objectiveID domain.ObjectiveID) ([]*KPI, error) {
	all, err := s.ListKPIs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*KPI, 0, len(all))
	for _, k := range all {
		if k.ObjectiveID == objectiveID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Service) nextKPICode(ctx context.Context) (string, error) {
	key := sequence.Key(requestcontext.TenantID(ctx), string(records.TypeKPIs))
	n, err := s.counter.Next(ctx, key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reserve kpi code")
	}
	return fmt.Sprintf("KPI-%03d", n), nil
}

func (s *Service) persist(ctx context.Context, op outbox.Op, typ records.Type, id string, record any) {
	if err := s.outbox.Enqueue(ctx, op, typ, id, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue objective write",
			"record_type", typ, "record_id", id, "op", op, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, kind events.Kind, typ records.Type, id string, at time.Time) {
	s.bus.Publish(events.Event{
		Kind:       kind,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(typ),
		RecordID:   id,
		At:         at,
	})
}

// load fetches both collections on first use per tenant and aligns the KPI
// code counter with the collection size.
func (s *Service) load(ctx context.Context) (*tenantState, error) {
	tenant := requestcontext.TenantID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tenants[tenant]
	if ok && state.loaded {
		return state, nil
	}
	if !ok {
		state = &tenantState{
			objectives: make(map[domain.ObjectiveID]*Objective),
			kpis:       make(map[domain.KPIID]*KPI),
		}
		s.tenants[tenant] = state
	}

	objectives, err := records.FetchAs[Objective](ctx, s.store, records.TypeObjectives)
	if err != nil {
		s.logger.WarnContext(ctx, "objective load failed, starting empty",
			"tenant", tenant, "error", err)
		objectives = nil
	}
	for i := range objectives {
		o := objectives[i]
		state.objectiveOrder = append(state.objectiveOrder, o.ID)
		state.objectives[o.ID] = &o
	}

	kpis, err := records.FetchAs[KPI](ctx, s.store, records.TypeKPIs)
	if err != nil {
		s.logger.WarnContext(ctx, "kpi load failed, starting empty",
			"tenant", tenant, "error", err)
		kpis = nil
	}
	for i := range kpis {
		k := kpis[i]
		state.kpiOrder = append(state.kpiOrder, k.ID)
		state.kpis[k.ID] = &k
	}
	if err := s.counter.EnsureAtLeast(ctx, sequence.Key(tenant, string(records.TypeKPIs)), int64(len(kpis))); err != nil {
		s.logger.WarnContext(ctx, "failed to align kpi counter", "error", err)
	}

	state.loaded = true
	return state, nil
}
