package models

import "time"

type JobType string

const (
	JobTypeMove     JobType = "move"
	JobTypeDelivery JobType = "delivery"
)

func (t JobType) Valid() bool {
	return t == JobTypeMove || t == JobTypeDelivery
}

// Status is a checkpoint stage within a tracking session.
// The ordered sequences per job type live in internal/statusflow.
type Status string

const (
	StatusNotStarted           Status = "not_started"
	StatusArrivedAtPickup      Status = "arrived_at_pickup"
	StatusLoading              Status = "loading"
	StatusInTransit            Status = "in_transit"
	StatusArrivedAtDestination Status = "arrived_at_destination"
	StatusUnloading            Status = "unloading"
	StatusArrived              Status = "arrived"
	StatusDelivering           Status = "delivering"
	StatusCompleted            Status = "completed"
)

// Stage is the inventory verification phase an arrival checkpoint gates on.
type Stage string

const (
	StageLoading   Stage = "loading"
	StageUnloading Stage = "unloading"
)

// JobRef is the identity of the physical job. The job itself is owned by the
// external scheduling system; we only reference it.
type JobRef struct {
	JobType JobType `json:"jobType"`
	JobID   string  `json:"jobId"`
}

// TrackingSession is one continuous attempt to execute a job.
// At most one active session per job; terminal once CurrentStatus is completed.
type TrackingSession struct {
	ID            string     `json:"id"`
	Job           JobRef     `json:"job"`
	CurrentStatus Status     `json:"currentStatus"`
	IsActive      bool       `json:"isActive"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Checkpoint is an append-only stage transition record. Seq гарантирует
// тотальный порядок внутри сессии.
type Checkpoint struct {
	ID         uint64    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Seq        int32     `json:"seq"`
	Status     Status    `json:"status"`
	Note       *string   `json:"note,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
