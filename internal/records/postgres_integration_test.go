//go:build integration

package records_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"qualis/internal/records"
	"qualis/pkg/domain"
	"qualis/pkg/platform/sentinel"
	"qualis/pkg/requestcontext"
	"qualis/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *records.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = records.NewPostgresFromPool(s.postgres.Pool)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "qm_records"))
	s.ctx = context.Background()
}

type doc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *PostgresStoreSuite) TestCreateFetchRoundTrip() {
	_, err := s.store.Create(s.ctx, records.TypeProcesses, "p1", doc{ID: "p1", Name: "Purchasing"})
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, records.TypeProcesses, "p2", doc{ID: "p2", Name: "HR"})
	s.Require().NoError(err)

	loaded, err := records.FetchAs[doc](s.ctx, s.store, records.TypeProcesses)
	s.Require().NoError(err)
	s.Require().Len(loaded, 2)
	s.Equal("p1", loaded[0].ID)
	s.Equal("p2", loaded[1].ID)
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	_, err := s.store.Create(s.ctx, records.TypeProcesses, "p1", doc{ID: "p1"})
	s.Require().NoError(err)

	_, err = s.store.Create(s.ctx, records.TypeProcesses, "p1", doc{ID: "p1"})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateMissingRecord() {
	_, err := s.store.Update(s.ctx, records.TypeIssues, "missing", doc{ID: "missing"})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateReplacesBody() {
	_, err := s.store.Create(s.ctx, records.TypeIssues, "i1", doc{ID: "i1", Name: "before"})
	s.Require().NoError(err)

	_, err = s.store.Update(s.ctx, records.TypeIssues, "i1", doc{ID: "i1", Name: "after"})
	s.Require().NoError(err)

	loaded, err := records.FetchAs[doc](s.ctx, s.store, records.TypeIssues)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Equal("after", loaded[0].Name)
}

func (s *PostgresStoreSuite) TestDelete() {
	_, err := s.store.Create(s.ctx, records.TypeKPIs, "k1", doc{ID: "k1"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, records.TypeKPIs, "k1"))
	s.Require().ErrorIs(s.store.Delete(s.ctx, records.TypeKPIs, "k1"), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestTenantIsolation() {
	_, err := s.store.Create(s.ctx, records.TypeProcesses, "p1", doc{ID: "p1"})
	s.Require().NoError(err)

	other := requestcontext.WithTenantID(s.ctx, domain.TenantID("acme"))
	loaded, err := s.store.Fetch(other, records.TypeProcesses)
	s.Require().NoError(err)
	s.Empty(loaded)

	// Same id in another tenant does not conflict.
	_, err = s.store.Create(other, records.TypeProcesses, "p1", doc{ID: "p1"})
	s.Require().NoError(err)
}
