package model

import "time"

// Item is a rentable unit and its current rental record.
type Item struct {
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	Currency  string     `json:"currency"`
	RentedBy  string     `json:"rented_by,omitempty"`
	Paid      bool       `json:"paid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Rented reports whether the item is currently assigned to a user.
func (i *Item) Rented() bool {
	return i.RentedBy != ""
}

// Currencies.
const (
	CurrencyCoins = "coins"
	CurrencyMoney = "money"
)

// Currencies lists the accepted currencies in display order.
var Currencies = []string{CurrencyCoins, CurrencyMoney}

// ValidCurrency reports whether c is one of the accepted currencies.
// The comparison is exact; callers lower-case user input first.
func ValidCurrency(c string) bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}
