// Package postgres persists audit events in the audit_events table. It is
// the durable trail when no broker is configured; with Kafka enabled the
// topic store is used instead and long-term retention lives downstream.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "docgate/pkg/platform/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one event. The category is always re-derived from the
// action so the eventCategories map stays the single source of truth even
// when callers leave Category unset.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, occurred_at, case_id, actor, actor_id,
			action, reason, status, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), string(category), event.Timestamp,
		nullable(event.CaseID), event.Actor, nullable(event.ActorID),
		event.Action, nullable(event.Reason), nullable(event.Status),
		nullable(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// ListByCase returns the trail for one case in chronological order.
func (s *Store) ListByCase(ctx context.Context, caseID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, case_id, actor, actor_id,
		       action, reason, status, request_id
		FROM audit_events
		WHERE case_id = $1
		ORDER BY occurred_at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the newest events across all cases, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, case_id, actor, actor_id,
		       action, reason, status, request_id
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByCategory supports category-scoped review, e.g. pulling the
// compliance trail for an export.
func (s *Store) ListByCategory(ctx context.Context, categories []audit.EventCategory, limit int) ([]audit.Event, error) {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, case_id, actor, actor_id,
		       action, reason, status, request_id
		FROM audit_events
		WHERE category = ANY($1)
		ORDER BY occurred_at DESC
		LIMIT $2`, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			caseID   sql.NullString
			actorID  sql.NullString
			reason   sql.NullString
			status   sql.NullString
			reqID    sql.NullString
		)
		if err := rows.Scan(&category, &e.Timestamp, &caseID, &e.Actor,
			&actorID, &e.Action, &reason, &status, &reqID); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.CaseID = caseID.String
		e.ActorID = actorID.String
		e.Reason = reason.String
		e.Status = status.String
		e.RequestID = reqID.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
