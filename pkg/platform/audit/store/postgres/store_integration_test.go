//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "docgate/pkg/platform/audit"
	"docgate/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *Store
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresAuditSuite) appendAt(action string, caseID string, at time.Time) {
	s.Require().NoError(s.store.Append(context.Background(), audit.Event{
		Timestamp: at,
		CaseID:    caseID,
		Actor:     "Alice Chang",
		ActorID:   "E001",
		Action:    action,
		Status:    "pending_review",
		RequestID: "req-1",
	}))
}

func (s *PostgresAuditSuite) TestAppendDerivesCategoryFromAction() {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.appendAt(string(audit.EventCaseSubmitted), "case-1", base)

	events, err := s.store.ListByCase(context.Background(), "case-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal("Alice Chang", events[0].Actor)
	s.Equal("E001", events[0].ActorID)
	s.Equal("req-1", events[0].RequestID)
	s.True(events[0].Timestamp.Equal(base))
}

func (s *PostgresAuditSuite) TestListByCaseIsChronological() {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.appendAt(string(audit.EventCaseSubmitted), "case-1", base.Add(time.Minute))
	s.appendAt(string(audit.EventCaseCreated), "case-1", base)
	s.appendAt(string(audit.EventCaseCreated), "case-2", base)

	events, err := s.store.ListByCase(context.Background(), "case-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCaseCreated), events[0].Action)
	s.Equal(string(audit.EventCaseSubmitted), events[1].Action)
}

func (s *PostgresAuditSuite) TestListRecentNewestFirst() {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.appendAt(string(audit.EventCaseCreated), "case-1", base)
	s.appendAt(string(audit.EventCaseAssigned), "case-1", base.Add(time.Second))
	s.appendAt(string(audit.EventCaseSubmitted), "case-1", base.Add(2*time.Second))

	events, err := s.store.ListRecent(context.Background(), 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCaseSubmitted), events[0].Action)
	s.Equal(string(audit.EventCaseAssigned), events[1].Action)
}

func (s *PostgresAuditSuite) TestListByCategory() {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.appendAt(string(audit.EventCaseCreated), "case-1", base)
	s.appendAt(string(audit.EventHandlerAdded), "", base.Add(time.Second))
	s.appendAt(string(audit.EventCaseRejected), "case-1", base.Add(2*time.Second))

	events, err := s.store.ListByCategory(context.Background(),
		[]audit.EventCategory{audit.CategorySecurity, audit.CategoryCompliance}, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCaseRejected), events[0].Action)
	s.Equal(string(audit.EventHandlerAdded), events[1].Action)
	s.Empty(events[1].CaseID)
}
