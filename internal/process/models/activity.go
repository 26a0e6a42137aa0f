package models

import (
	"sort"
	"strings"

	"qualis/pkg/domain"
)

// GovernanceIDPrefix marks the system-managed governance activity. The prefix
// on the id, not the flag, is the authoritative marker; the flag mirrors it
// for serialization.
const GovernanceIDPrefix = "sys-governance"

// GovernanceActivityName is the fixed display name of the governance activity.
const GovernanceActivityName = "Management System Governance"

// ActivityRecord is one step of a process. Activities are embedded in their
// process and not separately addressable.
type ActivityRecord struct {
	ID               domain.ActivityID `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Sequence         int               `json:"sequence"`
	IsSystemActivity bool              `json:"isSystemActivity,omitempty"`
}

// IsGovernance reports whether this is the system-managed governance activity.
func (a ActivityRecord) IsGovernance() bool {
	return strings.HasPrefix(string(a.ID), GovernanceIDPrefix)
}

// NewGovernanceActivity synthesizes the governance activity at sequence 0.
func NewGovernanceActivity() ActivityRecord {
	return ActivityRecord{
		ID:               domain.ActivityID(GovernanceIDPrefix + "-" + domain.NewID()),
		Name:             GovernanceActivityName,
		Description:      "Hosts the generic cross-cutting requirements allocated to every process.",
		Sequence:         0,
		IsSystemActivity: true,
	}
}

// EnsureGovernanceActivity enforces the governance invariant on an activity
// list: exactly one governance activity, at sequence 0, with every other
// activity resequenced contiguously from 1 in their prior relative order.
// When no governance activity is present one is synthesized and prepended.
// The function is idempotent: applying it to its own output changes nothing.
func EnsureGovernanceActivity(activities []ActivityRecord) []ActivityRecord {
	var governance *ActivityRecord
	rest := make([]ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if a.IsGovernance() {
			if governance == nil {
				g := a
				governance = &g
			}
			// Additional governance-marked entries are duplicates; drop them
			// so the exactly-one invariant holds.
			continue
		}
		rest = append(rest, a)
	}
	if governance == nil {
		g := NewGovernanceActivity()
		governance = &g
	}
	governance.Sequence = 0
	governance.IsSystemActivity = true
	governance.Name = GovernanceActivityName

	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Sequence < rest[j].Sequence })
	out := make([]ActivityRecord, 0, len(rest)+1)
	out = append(out, *governance)
	for i := range rest {
		rest[i].Sequence = i + 1
		rest[i].IsSystemActivity = false
		out = append(out, rest[i])
	}
	return out
}
