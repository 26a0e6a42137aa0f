// Package leadership manages leadership records: the quality policy and
// management reviews. Both kinds live in one collection discriminated by a
// kind field; the quality policy is a singleton upserted by kind.
package leadership

import (
	"time"

	"qualis/pkg/domain"
)

// Kind discriminates leadership record variants.
type Kind string

const (
	KindQualityPolicy    Kind = "qualityPolicy"
	KindManagementReview Kind = "managementReview"
)

// Valid reports whether the kind is a known variant.
func (k Kind) Valid() bool {
	return k == KindQualityPolicy || k == KindManagementReview
}

// Record is one leadership record. Fields beyond the common set apply per
// kind: Content carries the policy text for qualityPolicy; ReviewDate and
// Attendees apply to managementReview.
type Record struct {
	ID         domain.LeadershipID `json:"id"`
	Kind       Kind                `json:"kind"`
	Title      string              `json:"title"`
	Content    string              `json:"content,omitempty"`
	ReviewDate *time.Time          `json:"reviewDate,omitempty"`
	Attendees  []string            `json:"attendees,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	domain.Revisioned
}

// Clone returns a deep copy for lock-free reads.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Attendees = append([]string(nil), r.Attendees...)
	cp.RevisionHistory = append([]domain.RevisionEntry(nil), r.RevisionHistory...)
	if r.ReviewDate != nil {
		t := *r.ReviewDate
		cp.ReviewDate = &t
	}
	return &cp
}
