package pgcrew

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

func (s *Storage) CreateExtraItem(ctx context.Context, req *models.ExtraItemRequest) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO extra_item_requests (
  id, job_type, job_id, session_id, description, room, quantity,
  requested_by, status, requested_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, req.ID, req.Job.JobType, req.Job.JobID, req.SessionID, req.Description,
		req.Room, req.Quantity, req.RequestedBy, req.Status, req.RequestedAt.UTC())
	return errors.Wrap(err, "insert extra item request")
}

func (s *Storage) GetExtraItem(ctx context.Context, id string) (*models.ExtraItemRequest, error) {
	row := s.db.QueryRow(ctx, `
SELECT id, job_type, job_id, session_id, description, room, quantity,
       requested_by, status, fee_cents, requested_at, decided_at
FROM extra_item_requests
WHERE id = $1
`, id)
	req, err := scanExtraItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("extra item request %s", id)
	}
	return req, err
}

// DecideExtraItem applies the one-way transition. The WHERE status='pending'
// guard makes re-deciding lose the race deterministically: zero rows affected
// on an existing row means the first decision already stuck.
func (s *Storage) DecideExtraItem(ctx context.Context, id string, decision models.ExtraItemStatus, feeCents *int64, decidedAt time.Time) (*models.ExtraItemRequest, error) {
	row := s.db.QueryRow(ctx, `
UPDATE extra_item_requests
SET status = $2, fee_cents = $3, decided_at = $4
WHERE id = $1 AND status = 'pending'
RETURNING id, job_type, job_id, session_id, description, room, quantity,
          requested_by, status, fee_cents, requested_at, decided_at
`, id, decision, feeCents, decidedAt.UTC())

	req, err := scanExtraItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetExtraItem(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.Wrapf(errs.ErrAlreadyDecided, "extra item request %s", id)
	}
	return req, err
}

func (s *Storage) ListExtraItemsForJob(ctx context.Context, job models.JobRef, status models.ExtraItemStatus) ([]*models.ExtraItemRequest, error) {
	q := `
SELECT id, job_type, job_id, session_id, description, room, quantity,
       requested_by, status, fee_cents, requested_at, decided_at
FROM extra_item_requests
WHERE job_type = $1 AND job_id = $2
`
	args := []any{job.JobType, job.JobID}
	if status != "" {
		q += ` AND status = $3`
		args = append(args, status)
	}
	q += ` ORDER BY requested_at ASC`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select extra items")
	}
	defer rows.Close()

	var out []*models.ExtraItemRequest
	for rows.Next() {
		req, err := scanExtraItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func scanExtraItem(row pgx.Row) (*models.ExtraItemRequest, error) {
	var req models.ExtraItemRequest
	err := row.Scan(
		&req.ID, &req.Job.JobType, &req.Job.JobID, &req.SessionID,
		&req.Description, &req.Room, &req.Quantity,
		&req.RequestedBy, &req.Status, &req.FeeCents,
		&req.RequestedAt, &req.DecidedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan extra item request")
	}
	return &req, nil
}
