package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitRevisionStartsAtVersion1(t *testing.T) {
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	var r Revisioned
	r.InitRevision(now, "Created")

	require.Equal(t, 1, r.Version)
	require.Equal(t, now, r.RevisionDate)
	require.Equal(t, "Created", r.RevisionNote)
	require.Len(t, r.RevisionHistory, 1)
	require.Equal(t, 1, r.RevisionHistory[0].Version)
}

func TestBumpRevisionAppendsHistory(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	var r Revisioned
	r.InitRevision(t0, "Created")
	r.BumpRevision(t1, "First change")
	r.BumpRevision(t2, "Second change")

	require.Equal(t, 3, r.Version)
	require.Equal(t, t2, r.RevisionDate)
	require.Equal(t, "Second change", r.RevisionNote)

	// History is append-only and version-ordered.
	require.Len(t, r.RevisionHistory, 3)
	for i, entry := range r.RevisionHistory {
		require.Equal(t, i+1, entry.Version)
		require.NotEmpty(t, entry.ID)
	}
	require.Equal(t, "First change", r.RevisionHistory[1].Note)
}
