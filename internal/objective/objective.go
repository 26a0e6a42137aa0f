// Package objective tracks quality objectives and the KPIs that measure them.
// Both are versioned records following the same revision-tracking pattern as
// processes and issues.
package objective

import (
	"time"

	"qualis/pkg/domain"
)

// ObjectiveStatus is the coarse lifecycle of an objective.
type ObjectiveStatus string

const (
	StatusOpen      ObjectiveStatus = "open"
	StatusAchieved  ObjectiveStatus = "achieved"
	StatusAbandoned ObjectiveStatus = "abandoned"
)

// Objective is a quality objective, optionally scoped to one process.
type Objective struct {
	ID          domain.ObjectiveID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	ProcessID   domain.ProcessID   `json:"processId,omitempty"`
	Status      ObjectiveStatus    `json:"status"`
	TargetDate  *time.Time         `json:"targetDate,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	domain.Revisioned
}

// Clone returns a deep copy for lock-free reads.
func (o *Objective) Clone() *Objective {
	cp := *o
	cp.RevisionHistory = append([]domain.RevisionEntry(nil), o.RevisionHistory...)
	if o.TargetDate != nil {
		t := *o.TargetDate
		cp.TargetDate = &t
	}
	return &cp
}

// KPI is one indicator measuring progress toward an objective.
type KPI struct {
	ID          domain.KPIID       `json:"id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	ObjectiveID domain.ObjectiveID `json:"objectiveId,omitempty"`
	Unit        string             `json:"unit,omitempty"`
	Target      float64            `json:"target"`
	Current     float64            `json:"current"`
	CreatedAt   time.Time          `json:"createdAt"`
	domain.Revisioned
}

// OnTarget reports whether the latest measurement meets the target.
func (k *KPI) OnTarget() bool {
	return k.Current >= k.Target
}

// Clone returns a deep copy for lock-free reads.
func (k *KPI) Clone() *KPI {
	cp := *k
	cp.RevisionHistory = append([]domain.RevisionEntry(nil), k.RevisionHistory...)
	return &cp
}
