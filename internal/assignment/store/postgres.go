package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"docgate/internal/assignment"
	"docgate/pkg/platform/sentinel"
)

// Postgres persists the roster as a single versioned row; the handler list
// lives in a jsonb column since it is always read and written whole.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Load(ctx context.Context) (assignment.Roster, error) {
	var (
		payload []byte
		roster  assignment.Roster
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT handlers, rotation_cursor, version FROM assignment_roster WHERE id = 1`,
	).Scan(&payload, &roster.Cursor, &roster.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Roster{}, nil
		}
		return assignment.Roster{}, fmt.Errorf("load roster: %w", err)
	}
	if err := json.Unmarshal(payload, &roster.Handlers); err != nil {
		return assignment.Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	return roster, nil
}

func (s *Postgres) Save(ctx context.Context, roster assignment.Roster, expectedVersion int64) error {
	payload, err := json.Marshal(roster.Handlers)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}

	if expectedVersion == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO assignment_roster (id, handlers, rotation_cursor, version)
			VALUES (1, $1, $2, 1)
		`, payload, roster.Cursor)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return sentinel.ErrVersionConflict
			}
			return fmt.Errorf("insert roster: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE assignment_roster
		SET handlers = $1, rotation_cursor = $2, version = version + 1, updated_at = now()
		WHERE id = 1 AND version = $3
	`, payload, roster.Cursor, expectedVersion)
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrVersionConflict
	}
	return nil
}
