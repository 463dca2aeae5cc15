package model

import "time"

// Event is one entry of the rental history log.
type Event struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	ItemName  string    `json:"item_name,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event kinds.
const (
	EventItemAdded         = "item_added"
	EventItemRented        = "item_rented"
	EventItemPaid          = "item_paid"
	EventItemReturned      = "item_returned"
	EventItemExpired       = "item_expired"
	EventItemDeleted       = "item_deleted"
	EventProofSubmitted    = "proof_submitted"
	EventProofRejected     = "proof_rejected"
	EventUserBlacklisted   = "user_blacklisted"
	EventUserUnblacklisted = "user_unblacklisted"
)
