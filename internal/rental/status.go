package rental

import (
	"fmt"
	"time"

	"github.com/Clownyz/rentals-bot/internal/model"
)

// StatusKind is the display state of an item.
type StatusKind int

const (
	Available StatusKind = iota
	PendingPayment
	Rented
	RentedNoExpiry
)

func (k StatusKind) String() string {
	switch k {
	case Available:
		return "available"
	case PendingPayment:
		return "pending_payment"
	case Rented:
		return "rented"
	case RentedNoExpiry:
		return "rented_no_expiry"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

// Status is an item's display state at a point in time. HoursLeft is only
// meaningful for Rented.
type Status struct {
	Kind      StatusKind
	HoursLeft int64
}

// ItemStatus projects item onto its display state at now.
func ItemStatus(item model.Item, now time.Time) Status {
	switch {
	case !item.Rented():
		return Status{Kind: Available}
	case !item.Paid:
		return Status{Kind: PendingPayment}
	case item.ExpiresAt == nil:
		return Status{Kind: RentedNoExpiry}
	}

	secs := item.ExpiresAt.Unix() - now.Unix()
	if secs < 0 {
		secs = 0
	}
	return Status{Kind: Rented, HoursLeft: secs / 3600}
}

// Label renders the status the way the bot and panel show it.
func (s Status) Label() string {
	switch s.Kind {
	case PendingPayment:
		return "Waiting Payment"
	case Rented:
		return fmt.Sprintf("RENTED (%dh left)", s.HoursLeft)
	case RentedNoExpiry:
		return "RENTED"
	default:
		return "Available"
	}
}
