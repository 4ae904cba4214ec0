package cases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"docgate/internal/assignment"
	"docgate/internal/platform/metrics"
	"docgate/internal/validation"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/audit"
	"docgate/pkg/platform/sentinel"
	"docgate/pkg/requestcontext"
)

// Store persists cases. Put must reject writes whose expected version no
// longer matches the stored one with sentinel.ErrVersionConflict.
type Store interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, id string) (*Case, error)
	Put(ctx context.Context, c *Case, expectedVersion int64) error
	Query(ctx context.Context, filter Filter) ([]*Case, error)
}

// Assigner hands out the next handler in rotation.
type Assigner interface {
	AssignNext(ctx context.Context) (assignment.Handler, error)
}

// Evaluator runs the rulebook against a case's documents.
type Evaluator interface {
	Evaluate(ctx context.Context, productCode string, inputs []validation.DocumentInput) (validation.CaseVerdict, error)
}

// ErrTerminalState is returned when an operation targets a submitted or
// rejected case.
var ErrTerminalState = dErrors.New(dErrors.CodeInvariantViolation, "case is in a terminal state")

// ErrNoSupplementTarget is returned when a supplement is requested but no
// document carries a supplement flag and note.
var ErrNoSupplementTarget = dErrors.New(dErrors.CodeValidation, "no document is flagged for supplement")

// Service implements the case workflow.
type Service struct {
	store     Store
	assigner  Assigner
	evaluator Evaluator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	auditPub  audit.Publisher
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

func NewService(store Store, assigner Assigner, evaluator Evaluator, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		assigner:  assigner,
		evaluator: evaluator,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IntakeRequest is a new application arriving from the channel systems.
type IntakeRequest struct {
	ProductCode   string
	ApplicantName string
	ApplicantID   string
	Documents     []Document
}

// Create runs intake: evaluate the documents, pick a handler, and persist
// the case in pending review. Intake fails when no handler is active; the
// channel retries rather than queueing unassigned work.
func (s *Service) Create(ctx context.Context, req IntakeRequest) (*Case, error) {
	if req.ProductCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "product code is required")
	}
	now := requestcontext.Now(ctx)

	c := &Case{
		ID:            uuid.NewString(),
		Type:          TypeNew,
		ProductCode:   req.ProductCode,
		ApplicantName: req.ApplicantName,
		ApplicantID:   req.ApplicantID,
		Status:        StatusPendingReview,
		Documents:     req.Documents,
		SubmitDate:    now,
		UpdateDate:    now,
	}
	for i := range c.Documents {
		if c.Documents[i].ID == "" {
			c.Documents[i].ID = uuid.NewString()
		}
	}

	verdict, err := s.evaluator.Evaluate(ctx, c.ProductCode, c.validationInputs())
	if err != nil {
		return nil, err
	}
	c.Verdict = &verdict

	handler, err := s.assigner.AssignNext(ctx)
	if err != nil {
		return nil, err
	}
	c.HandlerCode = handler.EmployeeCode
	c.HandlerName = handler.Name

	c.appendHistory(now, requestcontext.System.ID, requestcontext.System.Name,
		"case_created", "application received", verdictWord(verdict.Valid))
	c.appendHistory(now, requestcontext.System.ID, requestcontext.System.Name,
		"case_assigned", "assigned to "+handler.Name, "")

	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CasesCreated.Inc()
	}
	s.logger.InfoContext(ctx, "case created",
		"case_id", c.ID,
		"product_code", c.ProductCode,
		"handler_code", c.HandlerCode,
		"valid", verdict.Valid,
	)
	s.audit(ctx, audit.EventCaseCreated, c.ID, "", string(c.Status))
	s.audit(ctx, audit.EventCaseAssigned, c.ID, handler.EmployeeCode, string(c.Status))
	return c, nil
}

// Detail returns one case with its full history and verdict.
func (s *Service) Detail(ctx context.Context, caseID string) (*Case, error) {
	return s.store.Get(ctx, caseID)
}

// Query lists cases matching the filter.
func (s *Service) Query(ctx context.Context, filter Filter) ([]*Case, error) {
	return s.store.Query(ctx, filter)
}

// Submit moves a pending-review case to submitted. The reviewer must give a
// rationale note; the case may be submitted even when the verdict is
// invalid, since the verdict travels with it for the downstream underwriter.
func (s *Service) Submit(ctx context.Context, caseID string, expectedVersion int64, note string) (*Case, error) {
	if strings.TrimSpace(note) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "submission note is required")
	}
	return s.transition(ctx, caseID, expectedVersion, audit.EventCaseSubmitted, note, func(c *Case) (string, error) {
		if c.Status != StatusPendingReview {
			return "", dErrors.Newf(dErrors.CodeInvariantViolation, "cannot submit a case in status %s", c.Status)
		}
		c.Status = StatusSubmitted
		return note, nil
	})
}

// RequestSupplement moves a pending-review case to pending supplement. At
// least one document must be flagged with a supplement note first; the
// history entry summarizes which documents need what.
func (s *Service) RequestSupplement(ctx context.Context, caseID string, expectedVersion int64, note string) (*Case, error) {
	return s.transition(ctx, caseID, expectedVersion, audit.EventCaseSupplementRequested, note, func(c *Case) (string, error) {
		if c.Status != StatusPendingReview {
			return "", dErrors.Newf(dErrors.CodeInvariantViolation, "cannot request supplement for a case in status %s", c.Status)
		}
		if !c.hasSupplementTarget() {
			return "", ErrNoSupplementTarget
		}
		detail := c.supplementSummary()
		if note != "" {
			detail = note + "; " + detail
		}
		c.Status = StatusPendingSupplement
		return detail, nil
	})
}

// Reject moves a pending-review case to rejected. A reason is mandatory. A
// case waiting on supplements cannot be rejected; the reviewer decides once
// the requested material is back.
func (s *Service) Reject(ctx context.Context, caseID string, expectedVersion int64, reason string) (*Case, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	return s.transition(ctx, caseID, expectedVersion, audit.EventCaseRejected, reason, func(c *Case) (string, error) {
		if c.Status != StatusPendingReview {
			return "", dErrors.Newf(dErrors.CodeInvariantViolation, "cannot reject a case in status %s", c.Status)
		}
		c.Status = StatusRejected
		return reason, nil
	})
}

// Resubmit brings a pending-supplement case back to review with the
// replacement documents, clears the supplement flags the replacements
// address, and re-evaluates. Flags on documents the applicant did not
// replace survive the round so the reviewer's request is not lost.
func (s *Service) Resubmit(ctx context.Context, caseID string, expectedVersion int64, replacements []Document) (*Case, error) {
	return s.transition(ctx, caseID, expectedVersion, audit.EventCaseResubmitted, "", func(c *Case) (string, error) {
		if c.Status != StatusPendingSupplement {
			return "", dErrors.Newf(dErrors.CodeInvariantViolation, "cannot resubmit a case in status %s", c.Status)
		}

		addressed := make(map[string]bool, len(replacements))
		for _, repl := range replacements {
			if repl.ID == "" {
				repl.ID = uuid.NewString()
			}
			addressed[repl.TypeCode] = true
			replaced := false
			for i := range c.Documents {
				if c.Documents[i].TypeCode == repl.TypeCode {
					repl.ID = c.Documents[i].ID
					c.Documents[i] = repl
					replaced = true
					break
				}
			}
			if !replaced {
				c.Documents = append(c.Documents, repl)
			}
		}
		for i := range c.Documents {
			if !addressed[c.Documents[i].TypeCode] {
				continue
			}
			c.Documents[i].NeedsSupplement = false
			c.Documents[i].SupplementNote = ""
			for j := range c.Documents[i].Pages {
				c.Documents[i].Pages[j].Invalid = false
			}
		}

		verdict, err := s.evaluator.Evaluate(ctx, c.ProductCode, c.validationInputs())
		if err != nil {
			return "", err
		}
		c.Verdict = &verdict
		c.Type = TypeSupplement
		c.Status = StatusPendingReview
		return "supplement documents received", nil
	})
}

// Reassign moves the case to a specific handler, outside the rotation.
func (s *Service) Reassign(ctx context.Context, caseID string, expectedVersion int64, handler assignment.Handler) (*Case, error) {
	if !handler.Active() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "handler %s is not active", handler.EmployeeCode)
	}
	return s.mutate(ctx, caseID, expectedVersion, audit.EventCaseReassigned, handler.EmployeeCode, func(c *Case, now time.Time) error {
		c.HandlerCode = handler.EmployeeCode
		c.HandlerName = handler.Name
		c.appendHistory(now, actorID(ctx), actorName(ctx), string(audit.EventCaseReassigned),
			"reassigned to "+handler.Name, "")
		return nil
	})
}

// SetManualValue records a reviewer correction on one field. Passing nil
// clears the override. The stored verdict is deliberately left alone: the
// reviewer re-evaluates explicitly when the corrections are in.
func (s *Service) SetManualValue(ctx context.Context, caseID string, expectedVersion int64, docID, fieldName string, value *string) (*Case, error) {
	return s.mutate(ctx, caseID, expectedVersion, audit.EventFieldOverridden, fieldName, func(c *Case, now time.Time) error {
		doc, ok := c.document(docID)
		if !ok {
			return dErrors.Newf(dErrors.CodeNotFound, "document %s not on case", docID)
		}
		for i := range doc.Fields {
			if doc.Fields[i].Name != fieldName {
				continue
			}
			doc.Fields[i].ManualOverride = value
			doc.Fields[i].Corrected = value != nil
			detail := "override cleared"
			if value != nil {
				detail = "field corrected"
			}
			c.appendHistory(now, actorID(ctx), actorName(ctx), string(audit.EventFieldOverridden),
				fieldName+": "+detail, "")
			return nil
		}
		return dErrors.Newf(dErrors.CodeNotFound, "field %s not on document %s", fieldName, docID)
	})
}

// SetSupplementFlag flags or unflags a document for supplement. Flagging
// requires a note telling the applicant what to fix; clearing the flag
// clears the note.
func (s *Service) SetSupplementFlag(ctx context.Context, caseID string, expectedVersion int64, docID string, flagged bool, note string) (*Case, error) {
	if flagged && strings.TrimSpace(note) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a supplement note is required when flagging a document")
	}
	event := audit.EventSupplementCleared
	if flagged {
		event = audit.EventSupplementFlagged
	}
	return s.mutate(ctx, caseID, expectedVersion, event, docID, func(c *Case, now time.Time) error {
		doc, ok := c.document(docID)
		if !ok {
			return dErrors.Newf(dErrors.CodeNotFound, "document %s not on case", docID)
		}
		doc.NeedsSupplement = flagged
		if flagged {
			doc.SupplementNote = note
		} else {
			doc.SupplementNote = ""
		}
		detail := doc.TypeCode
		if flagged {
			detail += ": " + note
		}
		c.appendHistory(now, actorID(ctx), actorName(ctx), string(event), detail, "")
		return nil
	})
}

// SetImageInvalid marks or unmarks one page as unusable.
func (s *Service) SetImageInvalid(ctx context.Context, caseID string, expectedVersion int64, docID, imageID string, invalid bool) (*Case, error) {
	event := audit.EventImageMarkingReverted
	if invalid {
		event = audit.EventImageMarkedInvalid
	}
	return s.mutate(ctx, caseID, expectedVersion, event, imageID, func(c *Case, now time.Time) error {
		doc, ok := c.document(docID)
		if !ok {
			return dErrors.Newf(dErrors.CodeNotFound, "document %s not on case", docID)
		}
		for i := range doc.Pages {
			if doc.Pages[i].ID == imageID {
				doc.Pages[i].Invalid = invalid
				c.appendHistory(now, actorID(ctx), actorName(ctx), string(event),
					doc.TypeCode+"/"+doc.Pages[i].FileName, "")
				return nil
			}
		}
		return dErrors.Newf(dErrors.CodeNotFound, "page %s not on document %s", imageID, docID)
	})
}

// Reevaluate re-runs the rulebook against the case as it stands and stores
// the fresh verdict. Running it twice on an unchanged case yields the same
// verdict.
func (s *Service) Reevaluate(ctx context.Context, caseID string, expectedVersion int64) (*Case, error) {
	return s.mutate(ctx, caseID, expectedVersion, audit.EventCaseReevaluated, "", func(c *Case, now time.Time) error {
		verdict, err := s.evaluator.Evaluate(ctx, c.ProductCode, c.validationInputs())
		if err != nil {
			return err
		}
		c.Verdict = &verdict
		c.appendHistory(now, actorID(ctx), actorName(ctx), string(audit.EventCaseReevaluated),
			"", verdictWord(verdict.Valid))
		return nil
	})
}

// transition loads, guards, flips the status, appends exactly one history
// entry, and saves under the expected version. The history entry and the
// status change land in the same write or not at all. apply returns the
// detail line for the history entry.
func (s *Service) transition(ctx context.Context, caseID string, expectedVersion int64, event audit.AuditEvent, reason string, apply func(*Case) (string, error)) (*Case, error) {
	c, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		s.metrics.IncrementTransitionFailure("terminal_state")
		return nil, ErrTerminalState
	}

	now := requestcontext.Now(ctx)
	detail, err := apply(c)
	if err != nil {
		s.metrics.IncrementTransitionFailure("guard")
		return nil, err
	}
	c.appendHistory(now, actorID(ctx), actorName(ctx), string(event), detail, string(c.Status))

	if err := s.put(ctx, c, expectedVersion); err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(c.Status))
	s.logger.InfoContext(ctx, "case transitioned",
		"case_id", c.ID,
		"status", c.Status,
		"action", event,
	)
	s.audit(ctx, event, c.ID, reason, string(c.Status))
	return c, nil
}

// mutate is transition without a status change: same terminal guard, same
// versioned write, same audit emit.
func (s *Service) mutate(ctx context.Context, caseID string, expectedVersion int64, event audit.AuditEvent, reason string, apply func(*Case, time.Time) error) (*Case, error) {
	c, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		s.metrics.IncrementTransitionFailure("terminal_state")
		return nil, ErrTerminalState
	}

	if err := apply(c, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.put(ctx, c, expectedVersion); err != nil {
		return nil, err
	}

	s.audit(ctx, event, c.ID, reason, string(c.Status))
	return c, nil
}

func (s *Service) put(ctx context.Context, c *Case, expectedVersion int64) error {
	err := s.store.Put(ctx, c, expectedVersion)
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrVersionConflict) {
		s.metrics.IncrementTransitionFailure("version_conflict")
		return dErrors.Wrap(err, dErrors.CodeConflict, "case was modified concurrently")
	}
	return err
}

func (s *Service) audit(ctx context.Context, event audit.AuditEvent, caseID, reason, status string) {
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, audit.Event{
		CaseID:  caseID,
		Action:  string(event),
		Actor:   actorName(ctx),
		ActorID: actorID(ctx),
		Reason:  reason,
		Status:  status,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", event, "case_id", caseID)
	}
}

func actorID(ctx context.Context) string   { return requestcontext.ActorFrom(ctx).ID }
func actorName(ctx context.Context) string { return requestcontext.ActorFrom(ctx).Name }

func verdictWord(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
