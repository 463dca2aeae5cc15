package model

import "time"

// Proof is a payment proof submitted by a renter for review.
type Proof struct {
	ID          string     `json:"id"`
	ItemName    string     `json:"item_name"`
	UserID      string     `json:"user_id"`
	URLs        []string   `json:"urls"`
	ImageMime   string     `json:"image_mime,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	DecidedBy   string     `json:"decided_by,omitempty"`
}

// Proof statuses.
const (
	ProofStatusPending  = "pending"
	ProofStatusApproved = "approved"
	ProofStatusRejected = "rejected"
)
