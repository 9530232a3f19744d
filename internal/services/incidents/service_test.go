package incidents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

type fakeRepo struct {
	sessions map[string]*models.TrackingSession
	reports  []*models.IncidentReport
}

func (r *fakeRepo) GetSession(ctx context.Context, id string) (*models.TrackingSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, errs.NotFoundf("session %s", id)
	}
	return s, nil
}

func (r *fakeRepo) CreateIncident(ctx context.Context, rep *models.IncidentReport) error {
	r.reports = append(r.reports, rep)
	return nil
}

func (r *fakeRepo) ListIncidentsForJob(ctx context.Context, job models.JobRef) ([]*models.IncidentReport, error) {
	var out []*models.IncidentReport
	for _, rep := range r.reports {
		if rep.Job == job {
			out = append(out, rep)
		}
	}
	return out, nil
}

func TestReport(t *testing.T) {
	job := models.JobRef{JobType: models.JobTypeMove, JobID: "M-1"}
	repo := &fakeRepo{sessions: map[string]*models.TrackingSession{
		"s1": {ID: "s1", Job: job, IsActive: true},
	}}
	svc := New(repo)
	ctx := context.Background()

	desc := "Dropped a box on the stairs"
	sid := "s1"
	rep, err := svc.Report(ctx, ReportInput{Job: job, SessionID: &sid, IssueType: models.IssueDamage, Description: &desc})
	require.NoError(t, err)
	require.NotEmpty(t, rep.ID)
	require.Equal(t, models.IssueDamage, rep.IssueType)
	require.NotNil(t, rep.SessionID)
	require.False(t, rep.ReportedAt.IsZero())

	// без сессии и без описания — тоже валидный репорт
	rep, err = svc.Report(ctx, ReportInput{Job: job, IssueType: models.IssueDelay})
	require.NoError(t, err)
	require.Nil(t, rep.SessionID)
	require.Nil(t, rep.Description)

	// reports accumulate, nothing is ever replaced
	reports, err := svc.ListForJob(ctx, job)
	require.NoError(t, err)
	require.Len(t, reports, 2)
}

func TestReport_Validation(t *testing.T) {
	repo := &fakeRepo{sessions: map[string]*models.TrackingSession{}}
	svc := New(repo)
	ctx := context.Background()
	job := models.JobRef{JobType: models.JobTypeDelivery, JobID: "D-1"}

	_, err := svc.Report(ctx, ReportInput{Job: models.JobRef{JobType: "bad", JobID: "1"}, IssueType: models.IssueOther})
	require.Error(t, err)

	_, err = svc.Report(ctx, ReportInput{Job: job, IssueType: "vibe"})
	require.Error(t, err)

	missing := "missing"
	_, err = svc.Report(ctx, ReportInput{Job: job, SessionID: &missing, IssueType: models.IssueOther})
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.ListForJob(ctx, models.JobRef{})
	require.Error(t, err)
}
