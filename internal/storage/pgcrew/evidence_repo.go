package pgcrew

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/models"
)

type InventoryItemInput struct {
	ItemKey string
	Name    string
	Room    *string
}

func (s *Storage) AddInventoryItems(ctx context.Context, job models.JobRef, items []InventoryItemInput) error {
	now := time.Now().UTC()
	for _, it := range items {
		_, err := s.db.Exec(ctx, `
INSERT INTO inventory_items (job_type, job_id, item_key, name, room, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (job_type, job_id, item_key) DO NOTHING
`, job.JobType, job.JobID, it.ItemKey, it.Name, it.Room, now)
		if err != nil {
			return errors.Wrap(err, "insert inventory item")
		}
	}
	return nil
}

func (s *Storage) ListInventoryItems(ctx context.Context, job models.JobRef) ([]*models.InventoryItem, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, job_type, job_id, item_key, name, room
FROM inventory_items
WHERE job_type = $1 AND job_id = $2
ORDER BY id ASC
`, job.JobType, job.JobID)
	if err != nil {
		return nil, errors.Wrap(err, "select inventory items")
	}
	defer rows.Close()

	var out []*models.InventoryItem
	for rows.Next() {
		var it models.InventoryItem
		if err := rows.Scan(&it.ID, &it.Job.JobType, &it.Job.JobID, &it.ItemKey, &it.Name, &it.Room); err != nil {
			return nil, errors.Wrap(err, "scan inventory item")
		}
		out = append(out, &it)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CountInventoryItems(ctx context.Context, job models.JobRef) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
SELECT count(*) FROM inventory_items WHERE job_type = $1 AND job_id = $2
`, job.JobType, job.JobID).Scan(&n)
	return n, errors.Wrap(err, "count inventory items")
}

// VerifyItem is monotonic: the primary key makes a repeat verify a no-op.
func (s *Storage) VerifyItem(ctx context.Context, v models.Verification) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO verifications (session_id, item_key, stage, verified_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (session_id, item_key, stage) DO NOTHING
`, v.SessionID, v.ItemKey, v.Stage, v.VerifiedAt.UTC())
	return errors.Wrap(err, "insert verification")
}

// CountVerifiedInventory counts only verifications that match a pre-trip
// inventory item. Room keys and approved extra items never count here.
func (s *Storage) CountVerifiedInventory(ctx context.Context, sessionID string, job models.JobRef, stage models.Stage) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
SELECT count(*)
FROM verifications v
JOIN inventory_items i
  ON i.job_type = $2 AND i.job_id = $3 AND i.item_key = v.item_key
WHERE v.session_id = $1 AND v.stage = $4
`, sessionID, job.JobType, job.JobID, stage).Scan(&n)
	return n, errors.Wrap(err, "count verified inventory")
}

func (s *Storage) CountVerifications(ctx context.Context, sessionID string, stage models.Stage) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
SELECT count(*) FROM verifications WHERE session_id = $1 AND stage = $2
`, sessionID, stage).Scan(&n)
	return n, errors.Wrap(err, "count verifications")
}

func (s *Storage) AddPhoto(ctx context.Context, p *models.PhotoRecord) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO photos (session_id, category, url, taken_at)
VALUES ($1,$2,$3,$4)
RETURNING id
`, p.SessionID, p.Category, p.URL, p.TakenAt.UTC()).Scan(&p.ID)
	return errors.Wrap(err, "insert photo")
}

func (s *Storage) CountPhotos(ctx context.Context, sessionID, category string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
SELECT count(*) FROM photos WHERE session_id = $1 AND category = $2
`, sessionID, category).Scan(&n)
	return n, errors.Wrap(err, "count photos")
}
