package leadership

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"qualis/internal/outbox"
	"qualis/internal/platform/events"
	"qualis/internal/records"
	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
	"qualis/pkg/requestcontext"
)

// Service owns the leadership record collection per tenant and enforces the
// quality-policy singleton.
type Service struct {
	store  records.Store
	outbox *outbox.Outbox
	logger *slog.Logger
	bus    *events.Bus

	mu      sync.RWMutex
	tenants map[domain.TenantID]*tenantState
}

type tenantState struct {
	loaded   bool
	order    []domain.LeadershipID
	byID     map[domain.LeadershipID]*Record
	policyID domain.LeadershipID
}

// New constructs the leadership service.
func New(store records.Store, ob *outbox.Outbox, logger *slog.Logger, bus *events.Bus) *Service {
	return &Service{
		store:   store,
		outbox:  ob,
		logger:  logger,
		bus:     bus,
		tenants: make(map[domain.TenantID]*tenantState),
	}
}

// PolicyInput carries the quality policy fields.
type PolicyInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SetQualityPolicy creates the quality policy on first call and updates it in
// place afterward. Exactly one qualityPolicy record exists at a time.
func (s *Service) SetQualityPolicy(ctx context.Context, input PolicyInput) (*Record, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.Content == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "policy content is required")
	}
	if input.Title == "" {
		input.Title = "Quality Policy"
	}

	now := requestcontext.Now(ctx)

	s.mu.Lock()
	if existing, ok := state.byID[state.policyID]; ok {
		existing.Title = input.Title
		existing.Content = input.Content
		existing.BumpRevision(now, "Quality policy updated")
		clone := existing.Clone()
		s.mu.Unlock()

		s.persist(ctx, outbox.OpUpdate, clone)
		s.publish(ctx, events.KindRecordUpdated, clone.ID, now)
		return clone, nil
	}

	r := &Record{
		ID:        domain.LeadershipID(domain.NewID()),
		Kind:      KindQualityPolicy,
		Title:     input.Title,
		Content:   input.Content,
		CreatedAt: now,
	}
	r.InitRevision(now, "Quality policy created")
	state.order = append(state.order, r.ID)
	state.byID[r.ID] = r
	state.policyID = r.ID
	s.mu.Unlock()

	s.persist(ctx, outbox.OpCreate, r)
	s.publish(ctx, events.KindRecordCreated, r.ID, now)
	return r.Clone(), nil
}

// QualityPolicy returns the singleton policy record.
func (s *Service) QualityPolicy(ctx context.Context) (*Record, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := state.byID[state.policyID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "quality policy not defined")
	}
	return r.Clone(), nil
}

// ReviewInput carries the fields for a new management review.
type ReviewInput struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ReviewDate *time.Time `json:"reviewDate"`
	Attendees  []string   `json:"attendees"`
}

// AddReview appends a management review record.
func (s *Service) AddReview(ctx context.Context, input ReviewInput) (*Record, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "review title is required")
	}

	now := requestcontext.Now(ctx)
	reviewDate := input.ReviewDate
	if reviewDate == nil {
		d := now
		reviewDate = &d
	}
	r := &Record{
		ID:         domain.LeadershipID(domain.NewID()),
		Kind:       KindManagementReview,
		Title:      input.Title,
		Content:    input.Content,
		ReviewDate: reviewDate,
		Attendees:  input.Attendees,
		CreatedAt:  now,
	}
	r.InitRevision(now, "Management review recorded")

	s.mu.Lock()
	state.order = append(state.order, r.ID)
	state.byID[r.ID] = r
	s.mu.Unlock()

	s.persist(ctx, outbox.OpCreate, r)
	s.publish(ctx, events.KindRecordCreated, r.ID, now)
	return r.Clone(), nil
}

// UpdatePatch is a partial update; nil fields are left untouched. Kind is
// immutable.
type UpdatePatch struct {
	Title      *string    `json:"title"`
	Content    *string    `json:"content"`
	ReviewDate *time.Time `json:"reviewDate"`
	Attendees  *[]string  `json:"attendees"`
}

// Update applies a partial patch and bumps the revision.
func (s *Service) Update(ctx context.Context, id domain.LeadershipID, patch UpdatePatch, revisionNote string) (*Record, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if revisionNote == "" {
		revisionNote = "Leadership record updated"
	}

	s.mu.Lock()
	r, ok := state.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "leadership record not found")
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Content != nil {
		r.Content = *patch.Content
	}
	if patch.ReviewDate != nil {
		t := *patch.ReviewDate
		r.ReviewDate = &t
	}
	if patch.Attendees != nil {
		r.Attendees = append([]string(nil), (*patch.Attendees)...)
	}
	r.BumpRevision(requestcontext.Now(ctx), revisionNote)
	clone := r.Clone()
	s.mu.Unlock()

	s.persist(ctx, outbox.OpUpdate, clone)
	s.publish(ctx, events.KindRecordUpdated, id, clone.RevisionDate)
	return clone, nil
}

// GetByID returns one leadership record.
func (s *Service) GetByID(ctx context.Context, id domain.LeadershipID) (*Record, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := state.byID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "leadership record not found")
	}
	return r.Clone(), nil
}

// List returns every leadership record, optionally filtered by kind.
func (s *Service) List(ctx context.Context, kind Kind) ([]*Record, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(state.order))
	for _, id := range state.order {
		r := state.byID[id]
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, op outbox.Op, r *Record) {
	if err := s.outbox.Enqueue(ctx, op, records.TypeLeadership, r.ID.String(), r); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue leadership write",
			"record_id", r.ID, "op", op, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, kind events.Kind, id domain.LeadershipID, at time.Time) {
	s.bus.Publish(events.Event{
		Kind:       kind,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(records.TypeLeadership),
		RecordID:   id.String(),
		At:         at,
	})
}

// load fetches the collection on first use per tenant. The first qualityPolicy
// record found becomes the singleton; later duplicates are kept out of the
// in-memory view so upserts converge on one record, and a warning is logged.
func (s *Service) load(ctx context.Context) (*tenantState, error) {
	tenant := requestcontext.TenantID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tenants[tenant]
	if ok && state.loaded {
		return state, nil
	}
	if !ok {
		state = &tenantState{byID: make(map[domain.LeadershipID]*Record)}
		s.tenants[tenant] = state
	}

	loaded, err := records.FetchAs[Record](ctx, s.store, records.TypeLeadership)
	if err != nil {
		s.logger.WarnContext(ctx, "leadership load failed, starting empty",
			"tenant", tenant, "error", err)
		loaded = nil
	}
	for i := range loaded {
		r := loaded[i]
		if r.Kind == KindQualityPolicy {
			if state.policyID != "" {
				s.logger.WarnContext(ctx, "duplicate quality policy record ignored",
					"tenant", tenant, "record_id", r.ID, "kept", state.policyID)
				continue
			}
			state.policyID = r.ID
		}
		state.order = append(state.order, r.ID)
		state.byID[r.ID] = &r
	}
	state.loaded = true
	return state, nil
}
