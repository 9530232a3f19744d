package incidents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

type Repository interface {
	GetSession(ctx context.Context, id string) (*models.TrackingSession, error)
	CreateIncident(ctx context.Context, r *models.IncidentReport) error
	ListIncidentsForJob(ctx context.Context, job models.JobRef) ([]*models.IncidentReport, error)
}

// Service records crew-reported incidents. Reports are append-only and never
// gate the status flow.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

type ReportInput struct {
	Job         models.JobRef
	SessionID   *string
	IssueType   models.IssueType
	Description *string
}

func (s *Service) Report(ctx context.Context, in ReportInput) (*models.IncidentReport, error) {
	if !in.Job.JobType.Valid() || in.Job.JobID == "" {
		return nil, errs.Invalidf("valid job reference is required")
	}
	if !in.IssueType.Valid() {
		return nil, errs.Invalidf("unknown issue type %q", in.IssueType)
	}
	if in.SessionID != nil && *in.SessionID != "" {
		// привязка к сессии необязательна, но если есть — должна существовать
		if _, err := s.repo.GetSession(ctx, *in.SessionID); err != nil {
			return nil, err
		}
	} else {
		in.SessionID = nil
	}

	r := &models.IncidentReport{
		ID:          uuid.NewString(),
		Job:         in.Job,
		SessionID:   in.SessionID,
		IssueType:   in.IssueType,
		Description: in.Description,
		ReportedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateIncident(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListForJob(ctx context.Context, job models.JobRef) ([]*models.IncidentReport, error) {
	if !job.JobType.Valid() || job.JobID == "" {
		return nil, errs.Invalidf("valid job reference is required")
	}
	return s.repo.ListIncidentsForJob(ctx, job)
}
