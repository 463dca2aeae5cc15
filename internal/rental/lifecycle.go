package rental

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/Clownyz/rentals-bot/internal/model"
)

// NormalizeName trims surrounding whitespace and converts the name to NFC so
// that visually identical names typed on different clients map to one key.
// Case is preserved; names are case-sensitive.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ParsePrice parses a positive integer amount. Thousands separators are
// accepted ("1,000").
func ParsePrice(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "price", Message: "price must be a positive whole number"}
	}
	return n, nil
}

// ParseCurrency lower-cases c and checks it against the accepted currencies.
func ParseCurrency(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if !model.ValidCurrency(c) {
		return "", &ValidationError{
			Field:   "currency",
			Message: "currency must be one of " + strings.Join(model.Currencies, ", "),
		}
	}
	return c, nil
}

// ParsePriceSpec parses a combined "<price> <currency>" argument such as
// "1000 coins".
func ParsePriceSpec(spec string) (int64, string, error) {
	fields := strings.Fields(spec)
	if len(fields) != 2 {
		return 0, "", &ValidationError{Field: "price", Message: `expected "<price> <currency>", e.g. "1000 coins"`}
	}
	price, err := ParsePrice(fields[0])
	if err != nil {
		return 0, "", err
	}
	currency, err := ParseCurrency(fields[1])
	if err != nil {
		return 0, "", err
	}
	return price, currency, nil
}

// AddItem builds a fresh, available item. An existing item with the same
// name is replaced by the caller.
func AddItem(name string, price int64, currency string) (model.Item, error) {
	name = NormalizeName(name)
	if name == "" {
		return model.Item{}, &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	if price <= 0 {
		return model.Item{}, &ValidationError{Field: "price", Message: "price must be a positive whole number"}
	}
	currency, err := ParseCurrency(currency)
	if err != nil {
		return model.Item{}, err
	}
	return model.Item{Name: name, Price: price, Currency: currency}, nil
}

// RentItem assigns item to userID for the duration described by
// durationSpec. A nil item means the item does not exist. The checks run in
// a fixed order: blacklist, existence, current renter, duration.
func RentItem(item *model.Item, userID, durationSpec string, now time.Time, isBlacklisted func(string) bool) (model.Item, error) {
	if isBlacklisted != nil && isBlacklisted(userID) {
		return model.Item{}, ErrBlacklisted
	}
	if item == nil {
		return model.Item{}, ErrNotFound
	}
	if item.Rented() {
		return model.Item{}, ErrAlreadyRented
	}
	d, err := ParseDuration(durationSpec)
	if err != nil {
		return model.Item{}, err
	}

	rented := *item
	rented.RentedBy = userID
	rented.Paid = false
	expires := now.Add(d).UTC().Truncate(time.Second)
	rented.ExpiresAt = &expires
	return rented, nil
}

// MarkPaid flags the current rental of item as paid. Marking an already
// paid rental again is a no-op.
func MarkPaid(item *model.Item) (model.Item, error) {
	if item == nil {
		return model.Item{}, ErrNotFound
	}
	if !item.Rented() {
		return model.Item{}, ErrNotRented
	}
	paid := *item
	paid.Paid = true
	return paid, nil
}

// ReturnItem clears the rental record. Returning an available item yields
// the same item.
func ReturnItem(item model.Item) model.Item {
	item.RentedBy = ""
	item.Paid = false
	item.ExpiresAt = nil
	return item
}

// Expire returns the item if its expiry lies strictly before now. The second
// result reports whether the item expired.
func Expire(item model.Item, now time.Time) (model.Item, bool) {
	if item.ExpiresAt == nil || !item.ExpiresAt.Before(now) {
		return item, false
	}
	return ReturnItem(item), true
}
