package messages

import "time"

// SessionCompleted is published exactly once per session when it reaches the
// completed status. Downstream consumers (sign-off capture, auto-invoicing)
// react to it; this core only produces.
type SessionCompleted struct {
	SessionID   string    `json:"session_id"`
	JobType     string    `json:"job_type"`
	JobID       string    `json:"job_id"`
	CompletedAt time.Time `json:"completed_at"`
}
