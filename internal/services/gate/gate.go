// Package gate decides whether the recorded evidence permits advancing past a
// checkpoint. Pure given current counts: it never mutates state and is queried
// fresh on every advance attempt, server-side. Client-reported "can advance"
// flags are never trusted.
package gate

import (
	"context"
	"fmt"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
	"github.com/othaplug/crewtrack/internal/statusflow"
)

const (
	RequirementPhoto     = "photo"
	RequirementInventory = "inventory"
)

type EvidenceRepo interface {
	CountPhotos(ctx context.Context, sessionID, category string) (int, error)
	CountInventoryItems(ctx context.Context, job models.JobRef) (int, error)
	CountVerifiedInventory(ctx context.Context, sessionID string, job models.JobRef, stage models.Stage) (int, error)
}

type Gate struct {
	repo EvidenceRepo
}

func New(repo EvidenceRepo) *Gate {
	return &Gate{repo: repo}
}

// Check evaluates the requirements for leaving the session's current
// checkpoint. Only arrival checkpoints carry requirements:
//   - at least one photo in the category matching the checkpoint;
//   - if the job has pre-trip inventory, every item verified for the
//     checkpoint's stage. Zero-inventory jobs degrade to photo-only.
//
// Returns nil when satisfied, an errs.BlockedError naming the unmet
// requirement otherwise.
func (g *Gate) Check(ctx context.Context, sess *models.TrackingSession) error {
	current := sess.CurrentStatus
	if !statusflow.IsArrival(current) {
		return nil
	}

	photos, err := g.repo.CountPhotos(ctx, sess.ID, string(current))
	if err != nil {
		return err
	}
	if photos == 0 {
		return errs.NewBlocked(RequirementPhoto,
			fmt.Sprintf("no photo recorded at %s", current))
	}

	stage, ok := statusflow.StageFor(current)
	if !ok {
		return nil
	}

	total, err := g.repo.CountInventoryItems(ctx, sess.Job)
	if err != nil {
		return err
	}
	if total == 0 {
		// Без инвентаря требование деградирует до "есть хотя бы одно фото".
		return nil
	}

	verified, err := g.repo.CountVerifiedInventory(ctx, sess.ID, sess.Job, stage)
	if err != nil {
		return err
	}
	if verified < total {
		return errs.NewBlocked(RequirementInventory,
			fmt.Sprintf("%d of %d items verified for stage %s", verified, total, stage))
	}
	return nil
}
