package models

import "time"

type ExtraItemStatus string

const (
	ExtraItemPending  ExtraItemStatus = "pending"
	ExtraItemApproved ExtraItemStatus = "approved"
	ExtraItemRejected ExtraItemStatus = "rejected"
)

type RequestedBy string

const (
	RequestedByCrew   RequestedBy = "crew"
	RequestedByClient RequestedBy = "client"
)

// ExtraItemRequest is an item discovered on-site that is not part of the
// original inventory. pending → approved|rejected, one decision only.
type ExtraItemRequest struct {
	ID          string          `json:"id"`
	Job         JobRef          `json:"job"`
	SessionID   string          `json:"sessionId"`
	Description string          `json:"description"`
	Room        *string         `json:"room,omitempty"`
	Quantity    int32           `json:"quantity"`
	RequestedBy RequestedBy     `json:"requestedBy"`
	Status      ExtraItemStatus `json:"status"`
	FeeCents    *int64          `json:"feeCents,omitempty"`
	RequestedAt time.Time       `json:"requestedAt"`
	DecidedAt   *time.Time      `json:"decidedAt,omitempty"`
}
