// Package service implements the issue manager: context issues with their
// append-only risk-version history, per-type code generation, and load-time
// backfill of dangling process links.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"qualis/internal/issue/models"
	"qualis/internal/outbox"
	"qualis/internal/platform/events"
	"qualis/internal/platform/metrics"
	processmodels "qualis/internal/process/models"
	"qualis/internal/records"
	"qualis/internal/sequence"
	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
	"qualis/pkg/requestcontext"
)

// ProcessDirectory is the slice of the process service the issue manager
// needs: the current process list for backfilling dangling links.
type ProcessDirectory interface {
	List(ctx context.Context) ([]*processmodels.Process, error)
}

// Service is the issue/risk versioning manager.
type Service struct {
	store     records.Store
	outbox    *outbox.Outbox
	counter   sequence.Counter
	processes ProcessDirectory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	bus       *events.Bus

	mu      sync.RWMutex
	tenants map[domain.TenantID]*tenantState
}

type tenantState struct {
	loaded bool
	order  []domain.IssueID
	byID   map[domain.IssueID]*models.ContextIssue
}

// New constructs the issue service.
func New(store records.Store, ob *outbox.Outbox, counter sequence.Counter, processes ProcessDirectory, logger *slog.Logger, m *metrics.Metrics, bus *events.Bus) *Service {
	return &Service{
		store:     store,
		outbox:    ob,
		counter:   counter,
		processes: processes,
		logger:    logger,
		metrics:   m,
		bus:       bus,
		tenants:   make(map[domain.TenantID]*tenantState),
	}
}

// CreateInput carries caller-supplied fields for a new issue.
type CreateInput struct {
	Code          string              `json:"code"`
	Type          models.IssueType    `json:"type"`
	Quadrant      models.Quadrant     `json:"quadrant"`
	Description   string              `json:"description"`
	ContextNature string              `json:"contextNature"`
	ProcessID     domain.ProcessID    `json:"processId"`
	Severity      *domain.Severity    `json:"severity"`
	Probability   *domain.Probability `json:"probability"`
	EvaluatorName string              `json:"evaluatorName"`
}

// UpdatePatch is a partial update; nil fields are left untouched. Severity and
// probability are deliberately absent: regrading goes through AddRiskVersion.
type UpdatePatch struct {
	Description   *string           `json:"description"`
	ContextNature *string           `json:"contextNature"`
	Quadrant      *models.Quadrant  `json:"quadrant"`
	ProcessID     *domain.ProcessID `json:"processId"`
}

// RiskVersionInput carries one residual evaluation.
type RiskVersionInput struct {
	Trigger       models.Trigger     `json:"trigger"`
	Description   string             `json:"description"`
	Severity      domain.Severity    `json:"severity"`
	Probability   domain.Probability `json:"probability"`
	EvaluatorName string             `json:"evaluatorName"`
	Notes         string             `json:"notes"`
}

// GenerateCode formats the next code for the given issue type:
// RISK/YY/NNN or OPP/YY/NNN, NNN being a running per-type count.
func (s *Service) GenerateCode(ctx context.Context, typ models.IssueType) (string, error) {
	prefix := "RISK"
	if typ == models.TypeOpportunity {
		prefix = "OPP"
	}
	key := sequence.Key(requestcontext.TenantID(ctx), "issues:"+string(typ))
	n, err := s.counter.Next(ctx, key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reserve issue code")
	}
	yy := requestcontext.Now(ctx).Year() % 100
	return fmt.Sprintf("%s/%02d/%03d", prefix, yy, n), nil
}

// Create registers a new issue. Weakness and threat issues supplied with both
// severity and probability get their initial risk version synthesized.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.ContextIssue, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.Description == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "issue description is required")
	}

	typ := input.Type
	if typ == "" {
		if input.Quadrant.NeedsGrading() {
			typ = models.TypeRisk
		} else {
			typ = models.TypeOpportunity
		}
	}

	code := input.Code
	if code == "" {
		code, err = s.GenerateCode(ctx, typ)
		if err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	issue := &models.ContextIssue{
		ID:            domain.IssueID(domain.NewID()),
		Code:          code,
		Type:          typ,
		Quadrant:      input.Quadrant,
		Description:   input.Description,
		ContextNature: input.ContextNature,
		ProcessID:     input.ProcessID,
		RiskVersions:  []models.RiskVersion{},
		CreatedAt:     now,
	}

	if input.Quadrant.NeedsGrading() && input.Severity != nil && input.Probability != nil {
		initial, err := models.NewRiskVersion(1, models.TriggerInitial, input.Description,
			*input.Severity, *input.Probability, input.EvaluatorName, "", now)
		if err != nil {
			return nil, err
		}
		issue.RiskVersions = append(issue.RiskVersions, initial)
		issue.RefreshDerived()
	}
	issue.InitRevision(now, "Issue created")

	s.mu.Lock()
	state.order = append(state.order, issue.ID)
	state.byID[issue.ID] = issue
	s.mu.Unlock()

	s.persist(ctx, outbox.OpCreate, issue)
	s.metrics.IssuesCreated.Inc()
	s.bus.Publish(events.Event{
		Kind:       events.KindRecordCreated,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(records.TypeIssues),
		RecordID:   issue.ID.String(),
		At:         now,
	})
	return issue.Clone(), nil
}

// Update applies a generic revision bump, independent of the risk history.
func (s *Service) Update(ctx context.Context, id domain.IssueID, patch UpdatePatch, revisionNote string) (*models.ContextIssue, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if revisionNote == "" {
		revisionNote = "Issue updated"
	}

	s.mu.Lock()
	issue, ok := state.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "issue not found")
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			s.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeBadRequest, "issue description cannot be empty")
		}
		issue.Description = *patch.Description
	}
	if patch.ContextNature != nil {
		issue.ContextNature = *patch.ContextNature
	}
	if patch.Quadrant != nil {
		issue.Quadrant = *patch.Quadrant
	}
	if patch.ProcessID != nil {
		issue.ProcessID = *patch.ProcessID
	}
	issue.BumpRevision(requestcontext.Now(ctx), revisionNote)
	clone := issue.Clone()
	s.mu.Unlock()

	s.persist(ctx, outbox.OpUpdate, clone)
	s.bus.Publish(events.Event{
		Kind:       events.KindRecordUpdated,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(records.TypeIssues),
		RecordID:   id.String(),
		At:         clone.RevisionDate,
	})
	return clone, nil
}

// AddRiskVersion appends a new evaluation. This is the only path that regrades
// severity and probability after creation: the issue description is replaced
// by the version's description, the derived fields refresh from the new tail,
// and the generic revision bumps with a synthesized note.
func (s *Service) AddRiskVersion(ctx context.Context, id domain.IssueID, input RiskVersionInput) (*models.ContextIssue, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	trigger := input.Trigger
	if trigger == "" {
		trigger = models.TriggerResidual
	}
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	issue, ok := state.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "issue not found")
	}

	next := len(issue.RiskVersions) + 1
	version, err := models.NewRiskVersion(next, trigger, input.Description,
		input.Severity, input.Probability, input.EvaluatorName, input.Notes, now)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	issue.RiskVersions = append(issue.RiskVersions, version)
	if version.Description != "" {
		issue.Description = version.Description
	}
	issue.RefreshDerived()
	issue.BumpRevision(now, fmt.Sprintf("Residual risk evaluation v%d", next))
	clone := issue.Clone()
	s.mu.Unlock()

	s.persist(ctx, outbox.OpUpdate, clone)
	s.metrics.RiskVersionsAdded.Inc()
	s.bus.Publish(events.Event{
		Kind:       events.KindRecordUpdated,
		Tenant:     requestcontext.TenantID(ctx),
		RecordType: string(records.TypeIssues),
		RecordID:   id.String(),
		At:         now,
	})
	return clone, nil
}

// GetByID returns one issue.
func (s *Service) GetByID(ctx context.Context, id domain.IssueID) (*models.ContextIssue, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := state.byID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "issue not found")
	}
	return issue.Clone(), nil
}

// List returns every issue in collection order.
func (s *Service) List(ctx context.Context) ([]*models.ContextIssue, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ContextIssue, 0, len(state.order))
	for _, id := range state.order {
		out = append(out, state.byID[id].Clone())
	}
	return out, nil
}

// ByProcess returns the issues linked to one process.
func (s *Service) ByProcess(ctx context.Context, processID domain.ProcessID) ([]*models.ContextIssue, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.ContextIssue, 0, len(all))
	for _, issue := range all {
		if issue.ProcessID == processID {
			out = append(out, issue)
		}
	}
	return out, nil
}

// GetLatestRiskVersion returns the newest evaluation of an issue.
func (s *Service) GetLatestRiskVersion(ctx context.Context, id domain.IssueID) (models.RiskVersion, error) {
	issue, err := s.GetByID(ctx, id)
	if err != nil {
		return models.RiskVersion{}, err
	}
	latest, ok := issue.LatestRiskVersion()
	if !ok {
		return models.RiskVersion{}, dErrors.New(dErrors.CodeNotFound, "issue has no risk versions")
	}
	return latest, nil
}

// GetRiskHistory returns the full evaluation history in chronological order.
func (s *Service) GetRiskHistory(ctx context.Context, id domain.IssueID) ([]models.RiskVersion, error) {
	issue, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return issue.RiskVersions, nil
}

func (s *Service) persist(ctx context.Context, op outbox.Op, issue *models.ContextIssue) {
	if err := s.outbox.Enqueue(ctx, op, records.TypeIssues, issue.ID.String(), issue); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue issue write",
			"issue_id", issue.ID, "op", op, "error", err)
	}
}

// load fetches the tenant's issues once, aligns the per-type code counters,
// and backfills dangling process links.
func (s *Service) load(ctx context.Context) (*tenantState, error) {
	tenant := requestcontext.TenantID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tenants[tenant]
	if ok && state.loaded {
		return state, nil
	}
	if !ok {
		state = &tenantState{byID: make(map[domain.IssueID]*models.ContextIssue)}
		s.tenants[tenant] = state
	}

	loaded, err := records.FetchAs[models.ContextIssue](ctx, s.store, records.TypeIssues)
	if err != nil {
		s.logger.WarnContext(ctx, "issue load failed, starting empty",
			"tenant", tenant, "error", err)
		loaded = nil
	}

	counts := map[models.IssueType]int64{}
	for i := range loaded {
		issue := loaded[i]
		counts[issue.Type]++
		state.order = append(state.order, issue.ID)
		state.byID[issue.ID] = &issue
	}
	for typ, n := range counts {
		key := sequence.Key(tenant, "issues:"+string(typ))
		if err := s.counter.EnsureAtLeast(ctx, key, n); err != nil {
			s.logger.WarnContext(ctx, "failed to align issue counter", "type", typ, "error", err)
		}
	}
	state.loaded = true

	s.backfillProcessLinks(ctx, state)
	return state, nil
}

// backfillProcessLinks repairs issues whose processId no longer matches any
// known process by matching process codes and names against the issue text.
// Only rows that actually changed are persisted; unmatchable ids stay as-is.
func (s *Service) backfillProcessLinks(ctx context.Context, state *tenantState) {
	if s.processes == nil {
		return
	}
	procs, err := s.processes.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "process lookup failed, skipping issue backfill", "error", err)
		return
	}
	known := make(map[domain.ProcessID]bool, len(procs))
	for _, p := range procs {
		known[p.ID] = true
	}

	for _, id := range state.order {
		issue := state.byID[id]
		if issue.ProcessID != "" && known[issue.ProcessID] {
			continue
		}
		inferred, ok := inferProcess(issue, procs)
		if !ok {
			continue
		}
		issue.ProcessID = inferred
		s.persist(ctx, outbox.OpUpdate, issue.Clone())
		s.logger.InfoContext(ctx, "backfilled issue process link",
			"issue_id", issue.ID, "process_id", inferred)
	}
}

func inferProcess(issue *models.ContextIssue, procs []*processmodels.Process) (domain.ProcessID, bool) {
	haystack := strings.ToLower(issue.Description + " " + issue.ContextNature + " " + issue.Code)
	for _, p := range procs {
		if p.Code != "" && strings.Contains(haystack, strings.ToLower(p.Code)) {
			return p.ID, true
		}
	}
	for _, p := range procs {
		if p.Name != "" && strings.Contains(haystack, strings.ToLower(p.Name)) {
			return p.ID, true
		}
	}
	return "", false
}
