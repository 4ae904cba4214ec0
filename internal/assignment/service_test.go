package assignment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"docgate/internal/assignment"
	"docgate/internal/assignment/store"
	"docgate/internal/platform/logger"
	dErrors "docgate/pkg/domain-errors"
)

type AssignmentSuite struct {
	suite.Suite
	ctx context.Context
	svc *assignment.Service
}

func TestAssignmentSuite(t *testing.T) {
	suite.Run(t, new(AssignmentSuite))
}

func (s *AssignmentSuite) SetupTest() {
	s.ctx = context.Background()
	s.svc = assignment.NewService(store.NewMemoryWith(
		assignment.Handler{ID: "h1", EmployeeCode: "E001", Name: "Alice", Status: assignment.StatusActive, Position: 1},
		assignment.Handler{ID: "h2", EmployeeCode: "E002", Name: "Bob", Status: assignment.StatusActive, Position: 2},
		assignment.Handler{ID: "h3", EmployeeCode: "E003", Name: "Carol", Status: assignment.StatusActive, Position: 3},
		assignment.Handler{ID: "h4", EmployeeCode: "E004", Name: "Dave", Status: assignment.StatusActive, Position: 4},
	), assignment.WithLogger(logger.NewNop()))
}

func (s *AssignmentSuite) assignCodes(n int) []string {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		h, err := s.svc.AssignNext(s.ctx)
		s.Require().NoError(err)
		codes = append(codes, h.EmployeeCode)
	}
	return codes
}

func (s *AssignmentSuite) TestRoundRobinWrapsInOrder() {
	codes := s.assignCodes(9)
	s.Equal([]string{
		"E001", "E002", "E003", "E004",
		"E001", "E002", "E003", "E004",
		"E001",
	}, codes)
}

func (s *AssignmentSuite) TestSkipsInactiveHandlers() {
	_, err := s.svc.SetStatus(s.ctx, "E002", false)
	s.Require().NoError(err)

	codes := s.assignCodes(6)
	s.Equal([]string{"E001", "E003", "E004", "E001", "E003", "E004"}, codes)
}

func (s *AssignmentSuite) TestDeactivatedCursorDoesNotResetRotation() {
	// Advance the cursor onto E002, take it offline, and confirm the
	// rotation continues from where it stood instead of restarting.
	s.Equal([]string{"E001", "E002"}, s.assignCodes(2))

	_, err := s.svc.SetStatus(s.ctx, "E002", false)
	s.Require().NoError(err)

	s.Equal([]string{"E003", "E004", "E001"}, s.assignCodes(3))
}

func (s *AssignmentSuite) TestReactivatedHandlerRejoinsRotation() {
	_, err := s.svc.SetStatus(s.ctx, "E003", false)
	s.Require().NoError(err)
	s.Equal([]string{"E001", "E002", "E004"}, s.assignCodes(3))

	_, err = s.svc.SetStatus(s.ctx, "E003", true)
	s.Require().NoError(err)
	s.Equal([]string{"E001", "E002", "E003", "E004"}, s.assignCodes(4))
}

func (s *AssignmentSuite) TestLastActiveHandlerCannotBeDeactivated() {
	for _, code := range []string{"E001", "E002", "E003"} {
		_, err := s.svc.SetStatus(s.ctx, code, false)
		s.Require().NoError(err)
	}

	_, err := s.svc.SetStatus(s.ctx, "E004", false)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	roster, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, roster.ActiveCount(), "failed deactivation leaves the roster unchanged")

	h, err := s.svc.AssignNext(s.ctx)
	s.Require().NoError(err)
	s.Equal("E004", h.EmployeeCode)
}

func (s *AssignmentSuite) TestNoActiveHandler() {
	svc := assignment.NewService(store.NewMemoryWith(
		assignment.Handler{ID: "h1", EmployeeCode: "E001", Status: assignment.StatusInactive, Position: 1},
	), assignment.WithLogger(logger.NewNop()))

	_, err := svc.AssignNext(s.ctx)
	s.Require().ErrorIs(err, assignment.ErrNoActiveHandler)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	s.Run("empty roster", func() {
		empty := assignment.NewService(store.NewMemory(), assignment.WithLogger(logger.NewNop()))
		_, err := empty.AssignNext(s.ctx)
		s.ErrorIs(err, assignment.ErrNoActiveHandler)
	})
}

func (s *AssignmentSuite) TestAddRejectsDuplicateEmployeeCode() {
	h, err := s.svc.Add(s.ctx, "E005", "Erin")
	s.Require().NoError(err)
	s.Equal(5, h.Position)
	s.Equal(assignment.StatusActive, h.Status)

	_, err = s.svc.Add(s.ctx, "E002", "Impostor")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AssignmentSuite) TestReorderRenumbersDensely() {
	roster, err := s.svc.Reorder(s.ctx, "E004", 2)
	s.Require().NoError(err)

	codes := make([]string, 0, len(roster.Handlers))
	for i, h := range roster.Handlers {
		codes = append(codes, h.EmployeeCode)
		s.Equal(i+1, h.Position)
	}
	s.Equal([]string{"E001", "E004", "E002", "E003"}, codes)

	s.Run("positions clamp to roster bounds", func() {
		roster, err := s.svc.Reorder(s.ctx, "E001", 99)
		s.Require().NoError(err)
		s.Equal("E001", roster.Handlers[3].EmployeeCode)
		s.Equal(4, roster.Handlers[3].Position)
	})

	s.Run("unknown handler", func() {
		_, err := s.svc.Reorder(s.ctx, "E999", 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AssignmentSuite) TestReorderDoesNotSkewFairness() {
	// Assign once, move the cursor handler to the back, and keep going:
	// every handler still appears once per full cycle.
	s.Equal([]string{"E001"}, s.assignCodes(1))

	_, err := s.svc.Reorder(s.ctx, "E001", 4)
	s.Require().NoError(err)

	codes := s.assignCodes(4)
	seen := map[string]int{}
	for _, c := range codes {
		seen[c]++
	}
	s.Len(seen, 4)
}
