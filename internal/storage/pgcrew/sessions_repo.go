package pgcrew

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

// ErrStaleStatus is returned by AdvanceSession when the session moved away
// from the expected status before our UPDATE landed. The caller re-reads and
// applies the idempotence contract.
var ErrStaleStatus = errors.New("session status is stale")

const pgUniqueViolation = "23505"

// CreateSession inserts the session together with its implicit first
// checkpoint. The partial unique index on active sessions turns a duplicate
// start into errs.ErrConflict without a read-check race.
func (s *Storage) CreateSession(ctx context.Context, sess *models.TrackingSession) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO sessions (
  id, job_type, job_id, current_status, is_active, started_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
`, sess.ID, sess.Job.JobType, sess.Job.JobID, sess.CurrentStatus, sess.IsActive, sess.StartedAt.UTC(), sess.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errs.Conflictf("job %s/%s already has an active session", sess.Job.JobType, sess.Job.JobID)
		}
		return errors.Wrap(err, "insert session")
	}

	_, err = tx.Exec(ctx, `
INSERT INTO checkpoints (session_id, seq, status, recorded_at)
VALUES ($1, 1, $2, $3)
`, sess.ID, sess.CurrentStatus, sess.StartedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert first checkpoint")
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (s *Storage) GetSession(ctx context.Context, id string) (*models.TrackingSession, error) {
	row := s.db.QueryRow(ctx, `
SELECT id, job_type, job_id, current_status, is_active, started_at, completed_at, created_at, updated_at
FROM sessions
WHERE id = $1
`, id)

	var sess models.TrackingSession
	var completedAt *time.Time
	err := row.Scan(
		&sess.ID, &sess.Job.JobType, &sess.Job.JobID,
		&sess.CurrentStatus, &sess.IsActive,
		&sess.StartedAt, &completedAt, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("session %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select session")
	}
	sess.CompletedAt = completedAt
	return &sess, nil
}

func (s *Storage) ListCheckpoints(ctx context.Context, sessionID string) ([]*models.Checkpoint, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, session_id, seq, status, note, lat, lng, recorded_at
FROM checkpoints
WHERE session_id = $1
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "select checkpoints")
	}
	defer rows.Close()

	var out []*models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		if err := rows.Scan(
			&cp.ID, &cp.SessionID, &cp.Seq, &cp.Status,
			&cp.Note, &cp.Lat, &cp.Lng, &cp.RecordedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan checkpoint")
		}
		out = append(out, &cp)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) LatestCheckpoint(ctx context.Context, sessionID string) (*models.Checkpoint, error) {
	row := s.db.QueryRow(ctx, `
SELECT id, session_id, seq, status, note, lat, lng, recorded_at
FROM checkpoints
WHERE session_id = $1
ORDER BY seq DESC
LIMIT 1
`, sessionID)

	var cp models.Checkpoint
	err := row.Scan(&cp.ID, &cp.SessionID, &cp.Seq, &cp.Status, &cp.Note, &cp.Lat, &cp.Lng, &cp.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFoundf("checkpoints for session %s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select latest checkpoint")
	}
	return &cp, nil
}

type SessionAdvance struct {
	SessionID string

	From models.Status
	To   models.Status

	Note *string
	Lat  *float64
	Lng  *float64

	// Complete marks the terminal transition: completed_at set, is_active dropped.
	Complete bool

	RecordedAt time.Time
}

// AdvanceSession is the single serialized writer of current_status. The
// conditional UPDATE is the mutual-exclusion boundary: of two concurrent
// advances from the same status only one matches, the other gets
// ErrStaleStatus and re-reads.
func (s *Storage) AdvanceSession(ctx context.Context, upd SessionAdvance) (*models.Checkpoint, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	recordedAt := upd.RecordedAt.UTC()

	var tag pgconn.CommandTag
	if upd.Complete {
		tag, err = tx.Exec(ctx, `
UPDATE sessions
SET current_status = $3, is_active = FALSE, completed_at = $4, updated_at = now()
WHERE id = $1 AND current_status = $2 AND is_active
`, upd.SessionID, upd.From, upd.To, recordedAt)
	} else {
		tag, err = tx.Exec(ctx, `
UPDATE sessions
SET current_status = $3, updated_at = now()
WHERE id = $1 AND current_status = $2 AND is_active
`, upd.SessionID, upd.From, upd.To)
	}
	if err != nil {
		return nil, errors.Wrap(err, "update session status")
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrStaleStatus
	}

	var cp models.Checkpoint
	err = tx.QueryRow(ctx, `
INSERT INTO checkpoints (session_id, seq, status, note, lat, lng, recorded_at)
SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6
FROM checkpoints
WHERE session_id = $1
RETURNING id, seq
`, upd.SessionID, upd.To, upd.Note, upd.Lat, upd.Lng, recordedAt).Scan(&cp.ID, &cp.Seq)
	if err != nil {
		return nil, errors.Wrap(err, "insert checkpoint")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	cp.SessionID = upd.SessionID
	cp.Status = upd.To
	cp.Note = upd.Note
	cp.Lat = upd.Lat
	cp.Lng = upd.Lng
	cp.RecordedAt = recordedAt
	return &cp, nil
}
