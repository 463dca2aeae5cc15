package model

import "time"

// BlacklistEntry bars a user from receiving new rentals.
type BlacklistEntry struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
