package models

import (
	"time"

	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
)

// IssueType discriminates risks from opportunities.
type IssueType string

const (
	TypeRisk        IssueType = "risk"
	TypeOpportunity IssueType = "opportunity"
)

// Quadrant places the issue in the SWOT grid. Weakness and threat issues are
// treated as risks requiring severity and probability grading.
type Quadrant string

const (
	QuadrantStrength    Quadrant = "strength"
	QuadrantWeakness    Quadrant = "weakness"
	QuadrantOpportunity Quadrant = "opportunity"
	QuadrantThreat      Quadrant = "threat"
)

// NeedsGrading reports whether issues in this quadrant carry risk versions.
func (q Quadrant) NeedsGrading() bool {
	return q == QuadrantWeakness || q == QuadrantThreat
}

// ContextIssue is a risk or opportunity identified in the organization's
// context analysis.
//
// Invariants:
//   - RiskVersions is append-only; entries are never mutated or removed
//   - RiskVersions[i].VersionNumber == i+1
//   - The derived Severity/Probability/Criticity/Priority fields mirror the
//     last RiskVersions entry, or are unset when the history is empty
type ContextIssue struct {
	ID            domain.IssueID      `json:"id"`
	Code          string              `json:"code"`
	Type          IssueType           `json:"type"`
	Quadrant      Quadrant            `json:"quadrant"`
	Description   string              `json:"description"`
	ContextNature string              `json:"contextNature,omitempty"`
	ProcessID     domain.ProcessID    `json:"processId,omitempty"`
	RiskVersions  []RiskVersion       `json:"riskVersions"`
	Severity      *domain.Severity    `json:"severity,omitempty"`
	Probability   *domain.Probability `json:"probability,omitempty"`
	Criticity     *domain.Criticity   `json:"criticity,omitempty"`
	Priority      domain.Priority     `json:"priority,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	domain.Revisioned
}

// RiskVersion is one append-only evaluation of an issue's risk.
type RiskVersion struct {
	ID            string             `json:"id"`
	VersionNumber int                `json:"versionNumber"`
	Date          time.Time          `json:"date"`
	Trigger       Trigger            `json:"trigger"`
	Description   string             `json:"description"`
	Severity      domain.Severity    `json:"severity"`
	Probability   domain.Probability `json:"probability"`
	Criticity     domain.Criticity   `json:"criticity"`
	Priority      domain.Priority    `json:"priority"`
	EvaluatorName string             `json:"evaluatorName,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

// Trigger names what prompted a risk evaluation.
type Trigger string

const (
	TriggerInitial  Trigger = "initial"
	TriggerResidual Trigger = "residual"
)

// NewRiskVersion builds a graded evaluation, deriving criticity and priority.
func NewRiskVersion(versionNumber int, trigger Trigger, description string, severity domain.Severity, probability domain.Probability, evaluator, notes string, now time.Time) (RiskVersion, error) {
	if !domain.ValidGrade(int(severity)) || !domain.ValidGrade(int(probability)) {
		return RiskVersion{}, dErrors.New(dErrors.CodeBadRequest, "severity and probability must be between 1 and 3")
	}
	criticity := domain.ComputeCriticity(severity, probability)
	return RiskVersion{
		ID:            domain.NewID(),
		VersionNumber: versionNumber,
		Date:          now,
		Trigger:       trigger,
		Description:   description,
		Severity:      severity,
		Probability:   probability,
		Criticity:     criticity,
		Priority:      domain.PriorityFromCriticity(criticity),
		EvaluatorName: evaluator,
		Notes:         notes,
	}, nil
}

// LatestRiskVersion returns the last (newest) entry of the history.
func (i *ContextIssue) LatestRiskVersion() (RiskVersion, bool) {
	if len(i.RiskVersions) == 0 {
		return RiskVersion{}, false
	}
	return i.RiskVersions[len(i.RiskVersions)-1], true
}

// RefreshDerived mirrors the convenience fields from the latest risk version.
// The single append path calls this so the duplicates never drift.
func (i *ContextIssue) RefreshDerived() {
	latest, ok := i.LatestRiskVersion()
	if !ok {
		i.Severity = nil
		i.Probability = nil
		i.Criticity = nil
		i.Priority = ""
		return
	}
	sev, prob, crit := latest.Severity, latest.Probability, latest.Criticity
	i.Severity = &sev
	i.Probability = &prob
	i.Criticity = &crit
	i.Priority = latest.Priority
}

// Clone returns a deep copy for lock-free reads.
func (i *ContextIssue) Clone() *ContextIssue {
	cp := *i
	cp.RiskVersions = append([]RiskVersion(nil), i.RiskVersions...)
	cp.RevisionHistory = append([]domain.RevisionEntry(nil), i.RevisionHistory...)
	if i.Severity != nil {
		v := *i.Severity
		cp.Severity = &v
	}
	if i.Probability != nil {
		v := *i.Probability
		cp.Probability = &v
	}
	if i.Criticity != nil {
		v := *i.Criticity
		cp.Criticity = &v
	}
	return &cp
}
