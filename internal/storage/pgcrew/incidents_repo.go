package pgcrew

import (
	"context"

	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/models"
)

func (s *Storage) CreateIncident(ctx context.Context, r *models.IncidentReport) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO incidents (id, job_type, job_id, session_id, issue_type, description, reported_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, r.ID, r.Job.JobType, r.Job.JobID, r.SessionID, r.IssueType, r.Description, r.ReportedAt.UTC())
	return errors.Wrap(err, "insert incident")
}

func (s *Storage) ListIncidentsForJob(ctx context.Context, job models.JobRef) ([]*models.IncidentReport, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, job_type, job_id, session_id, issue_type, description, reported_at
FROM incidents
WHERE job_type = $1 AND job_id = $2
ORDER BY reported_at ASC
`, job.JobType, job.JobID)
	if err != nil {
		return nil, errors.Wrap(err, "select incidents")
	}
	defer rows.Close()

	var out []*models.IncidentReport
	for rows.Next() {
		var r models.IncidentReport
		if err := rows.Scan(
			&r.ID, &r.Job.JobType, &r.Job.JobID, &r.SessionID,
			&r.IssueType, &r.Description, &r.ReportedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan incident")
		}
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
