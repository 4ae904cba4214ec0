package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"docgate/internal/cases"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/sentinel"
)

// Postgres persists cases in a single table. The frequently filtered
// columns (status, type, handler, dates) are real columns; documents,
// verdict, and history travel as jsonb since they are read and written
// whole.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, c *cases.Case) error {
	payload, err := encodeCase(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_cases (
			id, case_type, product_code, applicant_name, applicant_id,
			status, handler_code, handler_name, payload,
			submit_date, update_date, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
	`,
		c.ID, string(c.Type), c.ProductCode, c.ApplicantName, c.ApplicantID,
		string(c.Status), c.HandlerCode, c.HandlerName, payload,
		c.SubmitDate, c.UpdateDate,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return dErrors.Newf(dErrors.CodeConflict, "case %s already exists", c.ID)
		}
		return fmt.Errorf("create case: %w", err)
	}
	c.Version = 1
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*cases.Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payload, version FROM review_cases WHERE id = $1
	`, id)
	return scanCase(row, id)
}

func (s *Postgres) Put(ctx context.Context, c *cases.Case, expectedVersion int64) error {
	payload, err := encodeCase(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_cases
		SET case_type = $1, status = $2, handler_code = $3, handler_name = $4,
		    payload = $5, update_date = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`,
		string(c.Type), string(c.Status), c.HandlerCode, c.HandlerName,
		payload, c.UpdateDate, c.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save case: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save case: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM review_cases WHERE id = $1)`, c.ID,
		).Scan(&exists); err == nil && !exists {
			return dErrors.Newf(dErrors.CodeNotFound, "case %s not found", c.ID)
		}
		return sentinel.ErrVersionConflict
	}
	c.Version = expectedVersion + 1
	return nil
}

func (s *Postgres) Query(ctx context.Context, filter cases.Filter) ([]*cases.Case, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT payload, version FROM review_cases WHERE 1=1`)
	args := make([]any, 0, 8)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.SubmitFrom != nil {
		query.WriteString(` AND submit_date >= ` + arg(*filter.SubmitFrom))
	}
	if filter.SubmitTo != nil {
		query.WriteString(` AND submit_date <= ` + arg(*filter.SubmitTo))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query.WriteString(` AND status = ANY(` + arg(pq.Array(statuses)) + `)`)
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		query.WriteString(` AND case_type = ANY(` + arg(pq.Array(types)) + `)`)
	}
	if filter.HandlerCode != "" {
		query.WriteString(` AND handler_code = ` + arg(filter.HandlerCode))
	}
	if filter.Keyword != "" {
		pattern := "%" + strings.ToLower(filter.Keyword) + "%"
		p := arg(pattern)
		query.WriteString(` AND (lower(id) LIKE ` + p +
			` OR lower(applicant_name) LIKE ` + p +
			` OR lower(applicant_id) LIKE ` + p + `)`)
	}

	orderCol := "submit_date"
	if filter.SortBy == cases.SortByUpdateDate {
		orderCol = "update_date"
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query.WriteString(fmt.Sprintf(` ORDER BY %s %s, id ASC`, orderCol, direction))

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	out := make([]*cases.Case, 0)
	for rows.Next() {
		var (
			payload []byte
			version int64
		)
		if err := rows.Scan(&payload, &version); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c, err := decodeCase(payload, version)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	return out, nil
}

func encodeCase(c *cases.Case) ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode case: %w", err)
	}
	return payload, nil
}

func decodeCase(payload []byte, version int64) (*cases.Case, error) {
	var c cases.Case
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	c.Version = version
	return &c, nil
}

func scanCase(row *sql.Row, id string) (*cases.Case, error) {
	var (
		payload []byte
		version int64
	)
	if err := row.Scan(&payload, &version); err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "case %s not found", id)
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return decodeCase(payload, version)
}
