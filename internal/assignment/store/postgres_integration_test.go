//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"docgate/internal/assignment"
	"docgate/pkg/platform/sentinel"
	"docgate/pkg/testutil/containers"
)

type PostgresRosterSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *Postgres
}

func TestPostgresRosterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRosterSuite))
}

func (s *PostgresRosterSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
}

func (s *PostgresRosterSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "assignment_roster"))
}

func (s *PostgresRosterSuite) TestEmptyRosterLoadsAtVersionZero() {
	roster, err := s.store.Load(context.Background())
	s.Require().NoError(err)
	s.Empty(roster.Handlers)
	s.Zero(roster.Version)
}

func (s *PostgresRosterSuite) TestSaveAndLoad() {
	ctx := context.Background()

	roster := assignment.Roster{
		Handlers: []assignment.Handler{
			{ID: "h1", EmployeeCode: "E001", Name: "Alice", Status: assignment.StatusActive, Position: 1},
			{ID: "h2", EmployeeCode: "E002", Name: "Bob", Status: assignment.StatusInactive, Position: 2},
		},
		Cursor: "E001",
	}
	s.Require().NoError(s.store.Save(ctx, roster, 0))

	got, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), got.Version)
	s.Equal("E001", got.Cursor)
	s.Require().Len(got.Handlers, 2)
	s.Equal(assignment.StatusInactive, got.Handlers[1].Status)
}

func (s *PostgresRosterSuite) TestSaveEnforcesVersion() {
	ctx := context.Background()

	roster := assignment.Roster{
		Handlers: []assignment.Handler{
			{ID: "h1", EmployeeCode: "E001", Name: "Alice", Status: assignment.StatusActive, Position: 1},
		},
	}
	s.Require().NoError(s.store.Save(ctx, roster, 0))

	roster.Cursor = "E001"
	s.Require().NoError(s.store.Save(ctx, roster, 1))

	err := s.store.Save(ctx, roster, 1)
	s.ErrorIs(err, sentinel.ErrVersionConflict)

	s.Run("stale insert also conflicts", func() {
		err := s.store.Save(ctx, roster, 0)
		s.ErrorIs(err, sentinel.ErrVersionConflict)
	})

	got, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
}
