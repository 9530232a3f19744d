package models

import "time"

// LocationPing is a single GPS sample from a crew device. Retained as
// last-known-location per session (or per device when no session is active),
// not as a track log. Coordinates are stored as reported; plausibility
// filtering is a downstream concern.
type LocationPing struct {
	SessionID *string   `json:"sessionId,omitempty"`
	DeviceID  string    `json:"deviceId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
