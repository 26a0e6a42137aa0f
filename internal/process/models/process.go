package models

import (
	"time"

	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
)

// ProcessType classifies a process within the management system.
type ProcessType string

const (
	TypeManagement  ProcessType = "management"
	TypeOperational ProcessType = "operational"
	TypeSupport     ProcessType = "support"
)

// Status is the process lifecycle state. Archived is terminal in practice,
// though nothing forbids a later transition back.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Process is the aggregate root for one organizational process.
//
// Invariants:
//   - Activities contains exactly one system-managed governance activity
//   - The governance activity has Sequence 0; all others are contiguous from 1
//   - Version starts at 1 and increments on every update
//   - RevisionHistory is append-only
type Process struct {
	ID         domain.ProcessID  `json:"id"`
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	Type       ProcessType       `json:"type"`
	Status     Status            `json:"status"`
	Activities []ActivityRecord  `json:"activities"`
	IssueIDs   []domain.IssueID  `json:"issueIds"`
	ActionIDs  []domain.ActionID `json:"actionIds"`
	CreatedAt  time.Time         `json:"createdAt"`
	domain.Revisioned
}

// NewProcess constructs a draft process with the governance invariant applied
// and revision tracking initialized.
func NewProcess(id domain.ProcessID, code, name string, typ ProcessType, activities []ActivityRecord, now time.Time) (*Process, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "process name is required")
	}
	switch typ {
	case TypeManagement, TypeOperational, TypeSupport:
	case "":
		typ = TypeOperational
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown process type")
	}

	p := &Process{
		ID:         id,
		Code:       code,
		Name:       name,
		Type:       typ,
		Status:     StatusDraft,
		Activities: EnsureGovernanceActivity(activities),
		IssueIDs:   []domain.IssueID{},
		ActionIDs:  []domain.ActionID{},
		CreatedAt:  now,
	}
	p.InitRevision(now, "Process created")
	return p, nil
}

// IsActive reports whether the process participates in active views.
func (p *Process) IsActive() bool { return p.Status == StatusActive }

// GovernanceActivity returns the system-managed activity. The invariant
// guarantees its presence on any process built through this package.
func (p *Process) GovernanceActivity() (ActivityRecord, bool) {
	for _, a := range p.Activities {
		if a.IsGovernance() {
			return a, true
		}
	}
	return ActivityRecord{}, false
}

// Clone returns a deep copy so callers can read without holding service locks.
func (p *Process) Clone() *Process {
	cp := *p
	cp.Activities = append([]ActivityRecord(nil), p.Activities...)
	cp.IssueIDs = append([]domain.IssueID(nil), p.IssueIDs...)
	cp.ActionIDs = append([]domain.ActionID(nil), p.ActionIDs...)
	cp.RevisionHistory = append([]domain.RevisionEntry(nil), p.RevisionHistory...)
	return &cp
}
