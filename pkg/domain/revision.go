package domain

import "time"

// RevisionEntry is one line of a record's append-only audit log.
type RevisionEntry struct {
	ID      string    `json:"id"`
	Version int       `json:"version"`
	Date    time.Time `json:"date"`
	Note    string    `json:"note"`
}

// Revisioned is the generic revision-tracking block embedded by records that
// carry a version history (processes, issues, objectives, leadership records).
// Version starts at 1 and only ever increments; RevisionHistory is append-only.
type Revisioned struct {
	Version         int             `json:"version"`
	RevisionDate    time.Time       `json:"revisionDate"`
	RevisionNote    string          `json:"revisionNote,omitempty"`
	RevisionHistory []RevisionEntry `json:"revisionHistory,omitempty"`
}

// InitRevision stamps a freshly created record at version 1.
func (r *Revisioned) InitRevision(now time.Time, note string) {
	r.Version = 1
	r.RevisionDate = now
	r.RevisionNote = note
	r.RevisionHistory = []RevisionEntry{{
		ID:      NewID(),
		Version: 1,
		Date:    now,
		Note:    note,
	}}
}

// BumpRevision increments the version, refreshes the revision date, and
// appends one entry to the history. The previous entries are never touched.
func (r *Revisioned) BumpRevision(now time.Time, note string) {
	r.Version++
	r.RevisionDate = now
	r.RevisionNote = note
	r.RevisionHistory = append(r.RevisionHistory, RevisionEntry{
		ID:      NewID(),
		Version: r.Version,
		Date:    now,
		Note:    note,
	})
}
