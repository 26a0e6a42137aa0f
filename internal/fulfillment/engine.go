// Package fulfillment derives the satisfaction state of generic requirements
// per process from the issues and actions already linked to that process. The
// derivation is a pure function of current state: nothing is persisted or
// cached, every query recomputes from a fresh snapshot.
package fulfillment

import (
	"context"

	"qualis/internal/action"
	"qualis/internal/catalog"
	issuemodels "qualis/internal/issue/models"
	"qualis/pkg/domain"
)

// State is the derived satisfaction state of one requirement for one process.
type State string

const (
	StateSatisfied       State = "satisfied"
	StateNotYetSatisfied State = "not_yet_satisfied"
)

// SourceKind tags what kind of record justified satisfaction.
type SourceKind string

const (
	SourceIssueLinked  SourceKind = "issue_linked"
	SourceActionLinked SourceKind = "action_linked"
)

// InferenceSource points at one record that contributed evidence.
type InferenceSource struct {
	Kind     SourceKind `json:"kind"`
	RecordID string     `json:"recordId"`
	Code     string     `json:"code,omitempty"`
}

// Fulfillment is the derived view for one requirement on one process.
type Fulfillment struct {
	RequirementID string            `json:"requirementId"`
	ClauseNumber  string            `json:"clauseNumber"`
	ProcessID     domain.ProcessID  `json:"processId"`
	State         State             `json:"state"`
	InferredFrom  []InferenceSource `json:"inferredFrom"`
}

// Overview aggregates fulfillment across a process's generic requirements.
// Allocated always equals Total: every generic requirement is auto-allocated
// to the governance activity.
type Overview struct {
	ProcessID    domain.ProcessID       `json:"processId"`
	Total        int                    `json:"total"`
	Allocated    int                    `json:"allocated"`
	Satisfied    int                    `json:"satisfied"`
	NotSatisfied int                    `json:"notSatisfied"`
	Requirements map[string]Fulfillment `json:"requirements"`
}

// IssueSource supplies the issues linked to a process.
type IssueSource interface {
	ByProcess(ctx context.Context, processID domain.ProcessID) ([]*issuemodels.ContextIssue, error)
}

// ActionSource supplies the actions linked to a process.
type ActionSource interface {
	ByProcess(ctx context.Context, processID domain.ProcessID) ([]action.Action, error)
}

// Engine computes requirement fulfillment.
type Engine struct {
	catalog    *catalog.Catalog
	issues     IssueSource
	actions    ActionSource
	standardID string
}

// New constructs an engine over the given standard.
func New(cat *catalog.Catalog, issues IssueSource, actions ActionSource, standardID string) *Engine {
	return &Engine{
		catalog:    cat,
		issues:     issues,
		actions:    actions,
		standardID: standardID,
	}
}

// Infer evaluates one requirement for one process.
//
// The rule table is deliberately small: clause 6.1 is evidenced by linked
// issues, clauses 10.2 and 10.3 by linked actions. Every other clause has no
// automatic evidence source and always reports not_yet_satisfied; adding
// rules for 6.2, 9.1 and friends is a scope decision, not a bug fix.
func (e *Engine) Infer(ctx context.Context, req catalog.RequirementDefinition, processID domain.ProcessID) (Fulfillment, error) {
	f := Fulfillment{
		RequirementID: req.ID,
		ClauseNumber:  req.ClauseNumber,
		ProcessID:     processID,
		State:         StateNotYetSatisfied,
		InferredFrom:  []InferenceSource{},
	}

	switch req.ClauseNumber {
	case "6.1":
		issues, err := e.issues.ByProcess(ctx, processID)
		if err != nil {
			return Fulfillment{}, err
		}
		for _, issue := range issues {
			f.InferredFrom = append(f.InferredFrom, InferenceSource{
				Kind:     SourceIssueLinked,
				RecordID: issue.ID.String(),
				Code:     issue.Code,
			})
		}
	case "10.2", "10.3":
		actions, err := e.actions.ByProcess(ctx, processID)
		if err != nil {
			return Fulfillment{}, err
		}
		for _, a := range actions {
			f.InferredFrom = append(f.InferredFrom, InferenceSource{
				Kind:     SourceActionLinked,
				RecordID: a.ID.String(),
				Code:     a.Code,
			})
		}
	}

	if len(f.InferredFrom) > 0 {
		f.State = StateSatisfied
	}
	return f, nil
}

// ForProcess evaluates every generic requirement of the standard for one
// process, keyed by requirement id.
func (e *Engine) ForProcess(ctx context.Context, processID domain.ProcessID) (map[string]Fulfillment, error) {
	generics := e.catalog.GenericRequirements(e.standardID)
	out := make(map[string]Fulfillment, len(generics))
	for _, req := range generics {
		f, err := e.Infer(ctx, req, processID)
		if err != nil {
			return nil, err
		}
		out[req.ID] = f
	}
	return out, nil
}

// OverviewFor aggregates counts plus the per-requirement fulfillment.
func (e *Engine) OverviewFor(ctx context.Context, processID domain.ProcessID) (Overview, error) {
	fulfillments, err := e.ForProcess(ctx, processID)
	if err != nil {
		return Overview{}, err
	}
	ov := Overview{
		ProcessID:    processID,
		Total:        len(fulfillments),
		Allocated:    len(fulfillments),
		Requirements: fulfillments,
	}
	for _, f := range fulfillments {
		if f.State == StateSatisfied {
			ov.Satisfied++
		} else {
			ov.NotSatisfied++
		}
	}
	return ov, nil
}
