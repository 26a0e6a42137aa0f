package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualis/pkg/domain"
)

func countGovernance(activities []ActivityRecord) int {
	n := 0
	for _, a := range activities {
		if a.IsSystemActivity {
			n++
		}
	}
	return n
}

func TestEnsureGovernanceActivityOnEmptyList(t *testing.T) {
	got := EnsureGovernanceActivity(nil)

	require.Len(t, got, 1)
	assert.True(t, got[0].IsSystemActivity)
	assert.True(t, got[0].IsGovernance())
	assert.Equal(t, 0, got[0].Sequence)
	assert.Equal(t, GovernanceActivityName, got[0].Name)
}

func TestEnsureGovernanceActivityShiftsUserActivities(t *testing.T) {
	in := []ActivityRecord{
		{ID: "a1", Name: "Recruitment", Sequence: 0},
		{ID: "a2", Name: "Onboarding", Sequence: 1},
	}

	got := EnsureGovernanceActivity(in)

	require.Len(t, got, 3)
	assert.True(t, got[0].IsGovernance())
	assert.Equal(t, 0, got[0].Sequence)
	assert.Equal(t, "Recruitment", got[1].Name)
	assert.Equal(t, 1, got[1].Sequence)
	assert.Equal(t, "Onboarding", got[2].Name)
	assert.Equal(t, 2, got[2].Sequence)
}

func TestEnsureGovernanceActivityForcesExistingGovernanceToFront(t *testing.T) {
	in := []ActivityRecord{
		{ID: "a1", Name: "Step one", Sequence: 1},
		{ID: GovernanceIDPrefix + "-x", Name: GovernanceActivityName, Sequence: 5, IsSystemActivity: true},
		{ID: "a2", Name: "Step two", Sequence: 2},
	}

	got := EnsureGovernanceActivity(in)

	require.Len(t, got, 3)
	assert.True(t, got[0].IsGovernance())
	assert.Equal(t, 0, got[0].Sequence)
	assert.Equal(t, "Step one", got[1].Name)
	assert.Equal(t, "Step two", got[2].Name)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].Sequence, got[1].Sequence, got[2].Sequence})
}

func TestEnsureGovernanceActivityIsIdempotent(t *testing.T) {
	in := []ActivityRecord{
		{ID: "a1", Name: "B", Sequence: 3},
		{ID: "a2", Name: "A", Sequence: 1},
	}

	once := EnsureGovernanceActivity(in)
	twice := EnsureGovernanceActivity(once)

	assert.Equal(t, once, twice)
}

func TestEnsureGovernanceActivityKeepsExactlyOneGovernance(t *testing.T) {
	in := []ActivityRecord{
		{ID: GovernanceIDPrefix + "-1", Name: GovernanceActivityName, Sequence: 0, IsSystemActivity: true},
		{ID: GovernanceIDPrefix + "-2", Name: GovernanceActivityName, Sequence: 1, IsSystemActivity: true},
		{ID: "a1", Name: "Step", Sequence: 2},
	}

	got := EnsureGovernanceActivity(in)

	require.Len(t, got, 2)
	assert.Equal(t, 1, countGovernance(got))
	assert.Equal(t, domain.ActivityID(GovernanceIDPrefix+"-1"), got[0].ID)
}

func TestEnsureGovernanceActivityPreservesRelativeOrderOnTies(t *testing.T) {
	in := []ActivityRecord{
		{ID: "a1", Name: "First inserted", Sequence: 2},
		{ID: "a2", Name: "Second inserted", Sequence: 2},
	}

	got := EnsureGovernanceActivity(in)

	require.Len(t, got, 3)
	assert.Equal(t, "First inserted", got[1].Name)
	assert.Equal(t, "Second inserted", got[2].Name)
}
