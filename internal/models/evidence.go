package models

import "time"

// InventoryItem is a pre-trip inventory entry with a stable id, registered by
// dispatch before the crew rolls out. The verification gate counts against
// these; approved extra items are display-only and never land here.
type InventoryItem struct {
	ID      uint64  `json:"id"`
	Job     JobRef  `json:"job"`
	ItemKey string  `json:"itemKey"`
	Name    string  `json:"name"`
	Room    *string `json:"room,omitempty"`
}

// Verification is a monotonic (itemKey, stage) flag for a session.
// Повторная верификация — no-op, не ошибка.
type Verification struct {
	SessionID  string    `json:"sessionId"`
	ItemKey    string    `json:"itemKey"`
	Stage      Stage     `json:"stage"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// PhotoRecord is append-only photo evidence. The gate only looks at counts per
// category, never at pixel content.
type PhotoRecord struct {
	ID        uint64    `json:"id"`
	SessionID string    `json:"sessionId"`
	Category  string    `json:"category"`
	URL       string    `json:"url"`
	TakenAt   time.Time `json:"takenAt"`
}
