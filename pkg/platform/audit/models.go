package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: case submission, rejection, manual field overrides.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to access monitoring.
	// Examples: capability denials, roster mutations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: case intake, automatic assignment, re-evaluation.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// CaseID is the external case code the event concerns, empty for roster
	// and catalog events.
	CaseID string `json:"case_id,omitempty"`
	// Actor is the display name of whoever performed the action; "system"
	// for machine-initiated mutations.
	Actor   string `json:"actor"`
	ActorID string `json:"actor_id,omitempty"`
	Action  string `json:"action"`
	// Reason carries the reviewer's rationale note when one was supplied.
	Reason string `json:"reason,omitempty"`
	// Status is the resulting case status for lifecycle events.
	Status    string `json:"status,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	// Case lifecycle events
	EventCaseCreated             AuditEvent = "case_created"
	EventCaseAssigned            AuditEvent = "case_assigned"
	EventCaseReassigned          AuditEvent = "case_reassigned"
	EventCaseSubmitted           AuditEvent = "case_submitted"
	EventCaseSupplementRequested AuditEvent = "case_supplement_requested"
	EventCaseRejected            AuditEvent = "case_rejected"
	EventCaseResubmitted         AuditEvent = "case_resubmitted"
	EventCaseReevaluated         AuditEvent = "case_reevaluated"

	// Document review events
	EventFieldOverridden      AuditEvent = "field_overridden"
	EventSupplementFlagged    AuditEvent = "supplement_flagged"
	EventSupplementCleared    AuditEvent = "supplement_cleared"
	EventImageMarkedInvalid   AuditEvent = "image_marked_invalid"
	EventImageMarkingReverted AuditEvent = "image_marking_reverted"

	// Roster events
	EventHandlerAdded       AuditEvent = "handler_added"
	EventHandlerDeactivated AuditEvent = "handler_deactivated"
	EventHandlerReactivated AuditEvent = "handler_reactivated"
	EventRosterReordered    AuditEvent = "roster_reordered"

	// Catalog events
	EventRuleToggled         AuditEvent = "rule_toggled"
	EventCatalogEntryToggled AuditEvent = "catalog_entry_toggled"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: access monitoring and administrative changes.
// Operations: routine activity, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - tamper-proof storage, the review trail itself
	EventCaseSubmitted:           CategoryCompliance,
	EventCaseSupplementRequested: CategoryCompliance,
	EventCaseRejected:            CategoryCompliance,
	EventFieldOverridden:         CategoryCompliance,
	EventImageMarkedInvalid:      CategoryCompliance,

	// Security events - administrative surface changes
	EventHandlerAdded:        CategorySecurity,
	EventHandlerDeactivated:  CategorySecurity,
	EventHandlerReactivated:  CategorySecurity,
	EventRosterReordered:     CategorySecurity,
	EventRuleToggled:         CategorySecurity,
	EventCatalogEntryToggled: CategorySecurity,
	EventCaseReassigned:      CategorySecurity,

	// Operations events - routine intake and processing
	EventCaseCreated:          CategoryOperations,
	EventCaseAssigned:         CategoryOperations,
	EventCaseResubmitted:      CategoryOperations,
	EventCaseReevaluated:      CategoryOperations,
	EventSupplementFlagged:    CategoryOperations,
	EventSupplementCleared:    CategoryOperations,
	EventImageMarkingReverted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events for later inspection.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher accepts audit events from domain services. Implementations must
// not block case processing; delivery is at-most-once from the service's
// point of view.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
