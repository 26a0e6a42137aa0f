// Package domain holds shared value types used across services: typed record
// identifiers, the risk priority scale, and generic revision tracking.
package domain

import "github.com/google/uuid"

// Typed string ids keep foreign keys honest at compile time. Seeded records use
// stable well-known ids; everything else gets a UUID string.
type (
	ProcessID    string
	ActivityID   string
	IssueID      string
	ActionID     string
	ObjectiveID  string
	KPIID        string
	LeadershipID string
	TenantID     string
)

// NewID returns a fresh UUID string for use as a record identifier.
func NewID() string { return uuid.New().String() }

func (id ProcessID) String() string    { return string(id) }
func (id ActivityID) String() string   { return string(id) }
func (id IssueID) String() string      { return string(id) }
func (id ActionID) String() string     { return string(id) }
func (id ObjectiveID) String() string  { return string(id) }
func (id KPIID) String() string        { return string(id) }
func (id LeadershipID) String() string { return string(id) }
func (id TenantID) String() string     { return string(id) }
