package extraitems

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

type fakeRepo struct {
	sessions  map[string]*models.TrackingSession
	requests  map[string]*models.ExtraItemRequest
	inventory []*models.InventoryItem
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: map[string]*models.TrackingSession{},
		requests: map[string]*models.ExtraItemRequest{},
	}
}

func (r *fakeRepo) GetSession(ctx context.Context, id string) (*models.TrackingSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, errs.NotFoundf("session %s", id)
	}
	return s, nil
}

func (r *fakeRepo) CreateExtraItem(ctx context.Context, req *models.ExtraItemRequest) error {
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRepo) GetExtraItem(ctx context.Context, id string) (*models.ExtraItemRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, errs.NotFoundf("extra item request %s", id)
	}
	return req, nil
}

func (r *fakeRepo) DecideExtraItem(ctx context.Context, id string, decision models.ExtraItemStatus, feeCents *int64, decidedAt time.Time) (*models.ExtraItemRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, errs.NotFoundf("extra item request %s", id)
	}
	if req.Status != models.ExtraItemPending {
		return nil, errs.ErrAlreadyDecided
	}
	req.Status = decision
	req.FeeCents = feeCents
	req.DecidedAt = &decidedAt
	return req, nil
}

func (r *fakeRepo) ListExtraItemsForJob(ctx context.Context, job models.JobRef, status models.ExtraItemStatus) ([]*models.ExtraItemRequest, error) {
	var out []*models.ExtraItemRequest
	for _, req := range r.requests {
		if req.Job == job && (status == "" || req.Status == status) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListInventoryItems(ctx context.Context, job models.JobRef) ([]*models.InventoryItem, error) {
	return r.inventory, nil
}

func (r *fakeRepo) addSession(id string, active bool) models.JobRef {
	job := models.JobRef{JobType: models.JobTypeMove, JobID: "M-" + id}
	r.sessions[id] = &models.TrackingSession{ID: id, Job: job, CurrentStatus: models.StatusLoading, IsActive: active}
	return job
}

func TestSubmit(t *testing.T) {
	repo := newFakeRepo()
	repo.addSession("s1", true)
	svc := New(repo)
	ctx := context.Background()

	req, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Treadmill in garage"})
	require.NoError(t, err)
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.ExtraItemPending, req.Status)
	require.Equal(t, int32(1), req.Quantity)
	require.Equal(t, models.RequestedByCrew, req.RequestedBy)
	require.Nil(t, req.FeeCents)

	_, err = svc.Submit(ctx, SubmitInput{SessionID: "s1"})
	require.Error(t, err)
	_, err = svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "x", Quantity: -2})
	require.Error(t, err)
	_, err = svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "x", RequestedBy: "robot"})
	require.Error(t, err)
	_, err = svc.Submit(ctx, SubmitInput{SessionID: "missing", Description: "x"})
	require.ErrorIs(t, err, errs.ErrNotFound)

	repo.addSession("s2", false)
	_, err = svc.Submit(ctx, SubmitInput{SessionID: "s2", Description: "x"})
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestDecide_OneDecisionOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.addSession("s1", true)
	svc := New(repo)
	ctx := context.Background()

	req, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Extra boxes"})
	require.NoError(t, err)

	fee := int64(2500)
	decided, err := svc.Decide(ctx, req.ID, models.ExtraItemApproved, &fee)
	require.NoError(t, err)
	require.Equal(t, models.ExtraItemApproved, decided.Status)
	require.NotNil(t, decided.FeeCents)
	require.Equal(t, fee, *decided.FeeCents)
	require.NotNil(t, decided.DecidedAt)

	// второго решения не бывает, даже с тем же исходом
	_, err = svc.Decide(ctx, req.ID, models.ExtraItemApproved, &fee)
	require.ErrorIs(t, err, errs.ErrAlreadyDecided)
	_, err = svc.Decide(ctx, req.ID, models.ExtraItemRejected, nil)
	require.ErrorIs(t, err, errs.ErrAlreadyDecided)
}

func TestDecide_FeeRules(t *testing.T) {
	repo := newFakeRepo()
	repo.addSession("s1", true)
	svc := New(repo)
	ctx := context.Background()

	req, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Mirror"})
	require.NoError(t, err)

	neg := int64(-1)
	_, err = svc.Decide(ctx, req.ID, models.ExtraItemApproved, &neg)
	require.Error(t, err)

	_, err = svc.Decide(ctx, req.ID, "maybe", nil)
	require.Error(t, err)

	// zero fee normalizes to no fee
	zero := int64(0)
	decided, err := svc.Decide(ctx, req.ID, models.ExtraItemApproved, &zero)
	require.NoError(t, err)
	require.Nil(t, decided.FeeCents)

	// fee on a rejection is dropped
	req2, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Safe"})
	require.NoError(t, err)
	fee := int64(900)
	decided, err = svc.Decide(ctx, req2.ID, models.ExtraItemRejected, &fee)
	require.NoError(t, err)
	require.Equal(t, models.ExtraItemRejected, decided.Status)
	require.Nil(t, decided.FeeCents)

	_, err = svc.Decide(ctx, "missing", models.ExtraItemApproved, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDisplayInventory(t *testing.T) {
	repo := newFakeRepo()
	job := repo.addSession("s1", true)
	room := "garage"
	repo.inventory = []*models.InventoryItem{
		{ItemKey: "item-a", Name: "Sofa"},
		{ItemKey: "item-b", Name: "Bike", Room: &room},
	}
	svc := New(repo)
	ctx := context.Background()

	approved, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Treadmill", Quantity: 2, Room: &room})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, approved.ID, models.ExtraItemApproved, nil)
	require.NoError(t, err)

	rejected, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Hot tub"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, rejected.ID, models.ExtraItemRejected, nil)
	require.NoError(t, err)

	pending, err := svc.Submit(ctx, SubmitInput{SessionID: "s1", Description: "Grill"})
	require.NoError(t, err)
	_ = pending

	lines, err := svc.DisplayInventory(ctx, job)
	require.NoError(t, err)
	require.Len(t, lines, 3) // два штатных + один одобренный extra

	var extras int
	for _, l := range lines {
		if l.Extra {
			extras++
			require.Equal(t, "Treadmill", l.Description)
			require.Equal(t, int32(2), l.Quantity)
			require.Empty(t, l.ItemKey)
		}
	}
	require.Equal(t, 1, extras)

	_, err = svc.DisplayInventory(ctx, models.JobRef{})
	require.Error(t, err)
}
