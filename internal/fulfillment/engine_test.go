package fulfillment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"qualis/internal/action"
	"qualis/internal/catalog"
	issuemodels "qualis/internal/issue/models"
	"qualis/pkg/domain"
)

type fakeIssues struct {
	byProcess map[domain.ProcessID][]*issuemodels.ContextIssue
}

func (f *fakeIssues) ByProcess(_ context.Context, processID domain.ProcessID) ([]*issuemodels.ContextIssue, error) {
	return f.byProcess[processID], nil
}

type fakeActions struct {
	byProcess map[domain.ProcessID][]action.Action
}

func (f *fakeActions) ByProcess(_ context.Context, processID domain.ProcessID) ([]action.Action, error) {
	return f.byProcess[processID], nil
}

func newEngine(t *testing.T, issues *fakeIssues, actions *fakeActions) *Engine {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return New(cat, issues, actions, "iso9001-2015")
}

func requirementByClause(t *testing.T, e *Engine, clause string) catalog.RequirementDefinition {
	t.Helper()
	for _, r := range e.catalog.GenericRequirements(e.standardID) {
		if r.ClauseNumber == clause {
			return r
		}
	}
	t.Fatalf("no generic requirement for clause %s", clause)
	return catalog.RequirementDefinition{}
}

func TestInferClause61FollowsLinkedIssues(t *testing.T) {
	pid := domain.ProcessID("p1")
	issues := &fakeIssues{byProcess: map[domain.ProcessID][]*issuemodels.ContextIssue{
		pid: {{ID: "i1", Code: "RISK/26/001"}},
	}}
	e := newEngine(t, issues, &fakeActions{})
	req := requirementByClause(t, e, "6.1")

	got, err := e.Infer(context.Background(), req, pid)
	require.NoError(t, err)
	require.Equal(t, StateSatisfied, got.State)
	require.Len(t, got.InferredFrom, 1)
	require.Equal(t, SourceIssueLinked, got.InferredFrom[0].Kind)
	require.Equal(t, "i1", got.InferredFrom[0].RecordID)
	require.Equal(t, "RISK/26/001", got.InferredFrom[0].Code)

	// A process with no linked issues is not satisfied.
	got, err = e.Infer(context.Background(), req, "p-empty")
	require.NoError(t, err)
	require.Equal(t, StateNotYetSatisfied, got.State)
	require.Empty(t, got.InferredFrom)
}

func TestInferClauses102And103FollowLinkedActions(t *testing.T) {
	pid := domain.ProcessID("p1")
	actions := &fakeActions{byProcess: map[domain.ProcessID][]action.Action{
		pid: {{ID: "a1", Code: "ACT-001"}, {ID: "a2", Code: "ACT-002"}},
	}}
	e := newEngine(t, &fakeIssues{}, actions)

	for _, clause := range []string{"10.2", "10.3"} {
		req := requirementByClause(t, e, clause)
		got, err := e.Infer(context.Background(), req, pid)
		require.NoError(t, err)
		require.Equal(t, StateSatisfied, got.State, "clause %s", clause)
		require.Len(t, got.InferredFrom, 2)
		require.Equal(t, SourceActionLinked, got.InferredFrom[0].Kind)
	}
}

func TestInferOtherClausesNeverSatisfied(t *testing.T) {
	pid := domain.ProcessID("p1")
	issues := &fakeIssues{byProcess: map[domain.ProcessID][]*issuemodels.ContextIssue{
		pid: {{ID: "i1"}},
	}}
	actions := &fakeActions{byProcess: map[domain.ProcessID][]action.Action{
		pid: {{ID: "a1"}},
	}}
	e := newEngine(t, issues, actions)

	for _, clause := range []string{"4.4", "6.2", "7.5", "9.1"} {
		req := requirementByClause(t, e, clause)
		got, err := e.Infer(context.Background(), req, pid)
		require.NoError(t, err)
		require.Equal(t, StateNotYetSatisfied, got.State, "clause %s", clause)
		require.Empty(t, got.InferredFrom)
	}
}

func TestOverviewOneIssueZeroActions(t *testing.T) {
	pid := domain.ProcessID("p1")
	issues := &fakeIssues{byProcess: map[domain.ProcessID][]*issuemodels.ContextIssue{
		pid: {{ID: "i1", Code: "RISK/26/001"}},
	}}
	e := newEngine(t, issues, &fakeActions{})

	ov, err := e.OverviewFor(context.Background(), pid)
	require.NoError(t, err)

	generics := e.catalog.GenericRequirements(e.standardID)
	require.Equal(t, len(generics), ov.Total)
	require.Equal(t, ov.Total, ov.Allocated)
	require.Equal(t, 1, ov.Satisfied)
	require.Equal(t, ov.Total-1, ov.NotSatisfied)

	req := requirementByClause(t, e, "6.1")
	require.Equal(t, StateSatisfied, ov.Requirements[req.ID].State)
	for _, clause := range []string{"10.2", "10.3"} {
		req := requirementByClause(t, e, clause)
		require.Equal(t, StateNotYetSatisfied, ov.Requirements[req.ID].State)
	}
}

func TestForProcessUnknownStandardYieldsEmpty(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	e := New(cat, &fakeIssues{}, &fakeActions{}, "unknown-standard")

	got, err := e.ForProcess(context.Background(), "p1")
	require.NoError(t, err)
	require.Empty(t, got)
}
