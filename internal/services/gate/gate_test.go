package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

type fakeRepo struct {
	photos   map[string]int // category -> count
	items    int
	verified map[models.Stage]int
	err      error
}

func (f *fakeRepo) CountPhotos(ctx context.Context, sessionID, category string) (int, error) {
	return f.photos[category], f.err
}
func (f *fakeRepo) CountInventoryItems(ctx context.Context, job models.JobRef) (int, error) {
	return f.items, f.err
}
func (f *fakeRepo) CountVerifiedInventory(ctx context.Context, sessionID string, job models.JobRef, stage models.Stage) (int, error) {
	return f.verified[stage], f.err
}

func sess(jt models.JobType, st models.Status) *models.TrackingSession {
	return &models.TrackingSession{
		ID:            "s1",
		Job:           models.JobRef{JobType: jt, JobID: "J-1"},
		CurrentStatus: st,
		IsActive:      true,
	}
}

func TestCheck_NonArrivalAlwaysPasses(t *testing.T) {
	g := New(&fakeRepo{})
	for _, st := range []models.Status{
		models.StatusNotStarted, models.StatusLoading,
		models.StatusInTransit, models.StatusUnloading, models.StatusDelivering,
	} {
		require.NoError(t, g.Check(context.Background(), sess(models.JobTypeMove, st)), st)
	}
}

func TestCheck_PhotoRequired(t *testing.T) {
	repo := &fakeRepo{photos: map[string]int{}}
	g := New(repo)
	s := sess(models.JobTypeDelivery, models.StatusArrived)

	err := g.Check(context.Background(), s)
	require.ErrorIs(t, err, errs.ErrBlocked)
	var be *errs.BlockedError
	require.True(t, errors.As(err, &be))
	require.Equal(t, RequirementPhoto, be.Requirement)

	// photo in the wrong category does not count
	repo.photos["delivering"] = 3
	require.ErrorIs(t, g.Check(context.Background(), s), errs.ErrBlocked)

	repo.photos["arrived"] = 1
	require.NoError(t, g.Check(context.Background(), s))
}

func TestCheck_ZeroInventoryDegradesToPhotoOnly(t *testing.T) {
	repo := &fakeRepo{photos: map[string]int{"arrived": 1}, items: 0}
	g := New(repo)
	require.NoError(t, g.Check(context.Background(), sess(models.JobTypeDelivery, models.StatusArrived)))
}

func TestCheck_InventoryMustBeFullyVerified(t *testing.T) {
	repo := &fakeRepo{
		photos:   map[string]int{"arrived_at_pickup": 1},
		items:    2,
		verified: map[models.Stage]int{},
	}
	g := New(repo)
	s := sess(models.JobTypeMove, models.StatusArrivedAtPickup)

	err := g.Check(context.Background(), s)
	require.ErrorIs(t, err, errs.ErrBlocked)
	var be *errs.BlockedError
	require.True(t, errors.As(err, &be))
	require.Equal(t, RequirementInventory, be.Requirement)
	require.Contains(t, be.Detail, "0 of 2")

	repo.verified[models.StageLoading] = 1
	require.ErrorIs(t, g.Check(context.Background(), s), errs.ErrBlocked)

	repo.verified[models.StageLoading] = 2
	require.NoError(t, g.Check(context.Background(), s))
}

func TestCheck_StagePerArrival(t *testing.T) {
	repo := &fakeRepo{
		photos: map[string]int{"arrived_at_destination": 1},
		items:  1,
		verified: map[models.Stage]int{
			models.StageLoading: 1, // loading done, unloading not
		},
	}
	g := New(repo)
	err := g.Check(context.Background(), sess(models.JobTypeMove, models.StatusArrivedAtDestination))
	require.ErrorIs(t, err, errs.ErrBlocked)

	repo.verified[models.StageUnloading] = 1
	require.NoError(t, g.Check(context.Background(), sess(models.JobTypeMove, models.StatusArrivedAtDestination)))
}

func TestCheck_RepoErrorPropagates(t *testing.T) {
	want := errors.New("db down")
	g := New(&fakeRepo{err: want})
	err := g.Check(context.Background(), sess(models.JobTypeDelivery, models.StatusArrived))
	require.ErrorIs(t, err, want)
	require.NotErrorIs(t, err, errs.ErrBlocked)
}
