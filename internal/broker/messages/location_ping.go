package messages

import "time"

// LocationPing is the wire form of a GPS sample on the location.pings topic.
// Crew devices publish it; crew-feed consumes and keeps only the latest per key.
type LocationPing struct {
	SessionID *string   `json:"session_id,omitempty"`
	DeviceID  string    `json:"device_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
