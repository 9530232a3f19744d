// Package statusflow is the static mapping from job type to its ordered
// checkpoint sequence. Pure lookups, no side effects.
package statusflow

import (
	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/models"
)

// ErrTerminal is returned by Next when the current status is the last stage.
var ErrTerminal = errors.New("status is terminal")

var moveFlow = []models.Status{
	models.StatusNotStarted,
	models.StatusArrivedAtPickup,
	models.StatusLoading,
	models.StatusInTransit,
	models.StatusArrivedAtDestination,
	models.StatusUnloading,
	models.StatusCompleted,
}

var deliveryFlow = []models.Status{
	models.StatusNotStarted,
	models.StatusArrived,
	models.StatusDelivering,
	models.StatusCompleted,
}

func flowFor(jobType models.JobType) ([]models.Status, error) {
	switch jobType {
	case models.JobTypeMove:
		return moveFlow, nil
	case models.JobTypeDelivery:
		return deliveryFlow, nil
	default:
		return nil, errors.Errorf("unknown job type %q", jobType)
	}
}

// Sequence returns the full ordered checkpoint list for a job type.
func Sequence(jobType models.JobType) ([]models.Status, error) {
	flow, err := flowFor(jobType)
	if err != nil {
		return nil, err
	}
	out := make([]models.Status, len(flow))
	copy(out, flow)
	return out, nil
}

// Next returns the stage immediately following current in the job type's
// sequence, ErrTerminal if current is the last stage, or an error for a
// status that does not belong to the flow (no silent fall-through).
func Next(jobType models.JobType, current models.Status) (models.Status, error) {
	flow, err := flowFor(jobType)
	if err != nil {
		return "", err
	}
	for i, st := range flow {
		if st != current {
			continue
		}
		if i == len(flow)-1 {
			return "", ErrTerminal
		}
		return flow[i+1], nil
	}
	return "", errors.Errorf("status %q is not part of the %s flow", current, jobType)
}

// Progress is index(current)/len(sequence); completed is always 1.
func Progress(jobType models.JobType, current models.Status) float64 {
	if current == models.StatusCompleted {
		return 1
	}
	flow, err := flowFor(jobType)
	if err != nil {
		return 0
	}
	for i, st := range flow {
		if st == current {
			return float64(i) / float64(len(flow))
		}
	}
	return 0
}

// IsArrival reports whether a checkpoint is an "arrival" checkpoint, the only
// kind the verification gate puts requirements on.
func IsArrival(status models.Status) bool {
	switch status {
	case models.StatusArrivedAtPickup, models.StatusArrivedAtDestination, models.StatusArrived:
		return true
	}
	return false
}

// StageFor maps an arrival checkpoint to its inventory verification stage:
// loading at pickup, unloading at destination. Delivery arrival unloads.
func StageFor(status models.Status) (models.Stage, bool) {
	switch status {
	case models.StatusArrivedAtPickup:
		return models.StageLoading, true
	case models.StatusArrivedAtDestination, models.StatusArrived:
		return models.StageUnloading, true
	}
	return "", false
}
