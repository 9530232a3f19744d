package pgcrew

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  job_type TEXT NOT NULL,
  job_id TEXT NOT NULL,
  current_status TEXT NOT NULL,
  is_active BOOLEAN NOT NULL,
  started_at TIMESTAMPTZ NOT NULL,
  completed_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		// Одна активная сессия на job. Повторный старт упирается в этот индекс.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_sessions_active_job ON sessions(job_type, job_id) WHERE is_active`,
		`
CREATE TABLE IF NOT EXISTS checkpoints (
  id BIGSERIAL PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  seq INT NOT NULL,
  status TEXT NOT NULL,
  note TEXT NULL,
  lat DOUBLE PRECISION NULL,
  lng DOUBLE PRECISION NULL,
  recorded_at TIMESTAMPTZ NOT NULL,
  UNIQUE (session_id, seq)
)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_session_seq ON checkpoints(session_id, seq)`,
		`
CREATE TABLE IF NOT EXISTS inventory_items (
  id BIGSERIAL PRIMARY KEY,
  job_type TEXT NOT NULL,
  job_id TEXT NOT NULL,
  item_key TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  room TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE (job_type, job_id, item_key)
)`,
		`
CREATE TABLE IF NOT EXISTS verifications (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  item_key TEXT NOT NULL,
  stage TEXT NOT NULL,
  verified_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (session_id, item_key, stage)
)`,
		`
CREATE TABLE IF NOT EXISTS photos (
  id BIGSERIAL PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  category TEXT NOT NULL,
  url TEXT NOT NULL,
  taken_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_session_category ON photos(session_id, category)`,
		`
CREATE TABLE IF NOT EXISTS extra_item_requests (
  id TEXT PRIMARY KEY,
  job_type TEXT NOT NULL,
  job_id TEXT NOT NULL,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  description TEXT NOT NULL,
  room TEXT NULL,
  quantity INT NOT NULL,
  requested_by TEXT NOT NULL,
  status TEXT NOT NULL,
  fee_cents BIGINT NULL,
  requested_at TIMESTAMPTZ NOT NULL,
  decided_at TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_extra_items_job ON extra_item_requests(job_type, job_id)`,
		`
CREATE TABLE IF NOT EXISTS incidents (
  id TEXT PRIMARY KEY,
  job_type TEXT NOT NULL,
  job_id TEXT NOT NULL,
  session_id TEXT NULL,
  issue_type TEXT NOT NULL,
  description TEXT NULL,
  reported_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_job ON incidents(job_type, job_id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
