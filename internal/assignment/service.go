package assignment

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"docgate/internal/platform/metrics"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/audit"
	"docgate/pkg/requestcontext"
)

// RosterStore persists the roster. Save must reject writes whose expected
// version no longer matches the stored one.
type RosterStore interface {
	Load(ctx context.Context) (Roster, error)
	Save(ctx context.Context, roster Roster, expectedVersion int64) error
}

// ErrNoActiveHandler is returned when an assignment is requested while
// every handler on the roster is inactive.
var ErrNoActiveHandler = dErrors.New(dErrors.CodeUnavailable, "no active handler available for assignment")

// Service owns all roster mutations. A single mutex serializes them, so the
// read-modify-write against the store cannot interleave within one process;
// the store's version check catches writers elsewhere.
type Service struct {
	mu       sync.Mutex
	store    RosterStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditPub audit.Publisher
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(pub audit.Publisher) ServiceOption {
	return func(s *Service) { s.auditPub = pub }
}

func NewService(store RosterStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignNext picks the next active handler after the cursor, wrapping
// around the roster, and advances the cursor to them. With no active
// handler it returns ErrNoActiveHandler and leaves the roster untouched.
func (s *Service) AssignNext(ctx context.Context) (Handler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.store.Load(ctx)
	if err != nil {
		return Handler{}, err
	}
	if len(roster.Handlers) == 0 || roster.ActiveCount() == 0 {
		if s.metrics != nil {
			s.metrics.AssignmentsFailed.Inc()
		}
		return Handler{}, ErrNoActiveHandler
	}

	start := 0
	if idx := roster.indexOf(roster.Cursor); idx >= 0 {
		start = idx + 1
	}

	var picked Handler
	for i := 0; i < len(roster.Handlers); i++ {
		candidate := roster.Handlers[(start+i)%len(roster.Handlers)]
		if candidate.Active() {
			picked = candidate
			break
		}
	}

	updated := roster.clone()
	updated.Cursor = picked.EmployeeCode
	if err := s.store.Save(ctx, updated, roster.Version); err != nil {
		return Handler{}, err
	}

	if s.metrics != nil {
		s.metrics.AssignmentsTotal.Inc()
	}
	s.logger.InfoContext(ctx, "handler assigned",
		"employee_code", picked.EmployeeCode,
		"position", picked.Position,
	)
	return picked, nil
}

// Add appends a handler at the end of the rotation. Employee codes are
// unique across the roster, active or not.
func (s *Service) Add(ctx context.Context, employeeCode, name string) (Handler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.store.Load(ctx)
	if err != nil {
		return Handler{}, err
	}
	if roster.indexOf(employeeCode) >= 0 {
		return Handler{}, dErrors.Newf(dErrors.CodeConflict, "employee code %s already on roster", employeeCode)
	}

	handler := Handler{
		ID:           uuid.NewString(),
		EmployeeCode: employeeCode,
		Name:         name,
		Status:       StatusActive,
		Position:     len(roster.Handlers) + 1,
	}
	updated := roster.clone()
	updated.Handlers = append(updated.Handlers, handler)
	if err := s.store.Save(ctx, updated, roster.Version); err != nil {
		return Handler{}, err
	}

	s.audit(ctx, audit.EventHandlerAdded, employeeCode, "")
	return handler, nil
}

// SetStatus activates or deactivates a handler. Deactivating the last
// active handler is refused so the rotation can never go completely dark;
// take the roster out of service deliberately, not by accident.
func (s *Service) SetStatus(ctx context.Context, employeeCode string, active bool) (Handler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.store.Load(ctx)
	if err != nil {
		return Handler{}, err
	}
	idx := roster.indexOf(employeeCode)
	if idx < 0 {
		return Handler{}, dErrors.Newf(dErrors.CodeNotFound, "employee code %s not on roster", employeeCode)
	}

	if !active && roster.Handlers[idx].Active() && roster.ActiveCount() == 1 {
		return Handler{}, dErrors.New(dErrors.CodeInvariantViolation, "cannot deactivate the last active handler")
	}

	updated := roster.clone()
	if active {
		updated.Handlers[idx].Status = StatusActive
	} else {
		updated.Handlers[idx].Status = StatusInactive
	}
	if err := s.store.Save(ctx, updated, roster.Version); err != nil {
		return Handler{}, err
	}

	event := audit.EventHandlerDeactivated
	if active {
		event = audit.EventHandlerReactivated
	}
	s.audit(ctx, event, employeeCode, "")
	return updated.Handlers[idx], nil
}

// Reorder moves a handler to the given 1-based position and renumbers the
// roster densely. Positions out of range clamp to the ends.
func (s *Service) Reorder(ctx context.Context, employeeCode string, position int) (Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.store.Load(ctx)
	if err != nil {
		return Roster{}, err
	}
	idx := roster.indexOf(employeeCode)
	if idx < 0 {
		return Roster{}, dErrors.Newf(dErrors.CodeNotFound, "employee code %s not on roster", employeeCode)
	}

	if position < 1 {
		position = 1
	}
	if position > len(roster.Handlers) {
		position = len(roster.Handlers)
	}

	updated := roster.clone()
	moved := updated.Handlers[idx]
	updated.Handlers = append(updated.Handlers[:idx], updated.Handlers[idx+1:]...)
	target := position - 1
	updated.Handlers = append(updated.Handlers[:target],
		append([]Handler{moved}, updated.Handlers[target:]...)...)
	for i := range updated.Handlers {
		updated.Handlers[i].Position = i + 1
	}

	if err := s.store.Save(ctx, updated, roster.Version); err != nil {
		return Roster{}, err
	}

	s.audit(ctx, audit.EventRosterReordered, employeeCode, "")
	updated.Version = roster.Version + 1
	return updated, nil
}

// List returns the roster in rotation order.
func (s *Service) List(ctx context.Context) (Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

func (s *Service) audit(ctx context.Context, event audit.AuditEvent, employeeCode, reason string) {
	actor := requestcontext.ActorFrom(ctx)
	s.logger.InfoContext(ctx, "roster changed",
		"action", event,
		"employee_code", employeeCode,
		"actor_id", actor.ID,
	)
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, audit.Event{
		Action:  string(event),
		Actor:   actor.Name,
		ActorID: actor.ID,
		Reason:  reason,
		Status:  employeeCode,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", event)
	}
}
