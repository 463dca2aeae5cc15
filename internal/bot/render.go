package bot

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

var printer = message.NewPrinter(language.English)

// FormatPrice renders an amount with thousands separators, e.g. "1,000 coins".
func FormatPrice(amount int64, currency string) string {
	return printer.Sprintf("%d %s", amount, currency)
}

// RenderListing renders the item part of a listing.
func RenderListing(l rental.Listing) Response {
	resp := Response{Title: "Custom Sets"}
	if len(l.Items) == 0 {
		resp.Text = "No sets listed yet."
		return resp
	}
	for _, it := range l.Items {
		value := FormatPrice(it.Price, it.Currency) + " | " + it.StatusLabel
		if it.RentedBy != "" {
			value += " | " + notify.Mention(it.RentedBy)
		}
		resp.Fields = append(resp.Fields, Field{Name: it.Name, Value: value})
	}
	return resp
}

// RenderBlacklist renders blacklist entries.
func RenderBlacklist(entries []model.BlacklistEntry) Response {
	resp := Response{Title: "Blacklist"}
	if len(entries) == 0 {
		resp.Text = "Nobody is blacklisted."
		return resp
	}
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "No reason given"
		}
		resp.Fields = append(resp.Fields, Field{Name: notify.Mention(e.UserID), Value: reason})
	}
	return resp
}

// RenderHistory renders an item's events, newest first.
func RenderHistory(name string, events []model.Event) Response {
	resp := Response{Title: "History of " + name}
	if len(events) == 0 {
		resp.Text = "No history recorded."
		return resp
	}

	var lines []string
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("`%s` %s", ev.CreatedAt.UTC().Format("2006-01-02 15:04"), describeEvent(ev)))
	}
	resp.Text = strings.Join(lines, "\n")
	return resp
}

func describeEvent(ev model.Event) string {
	var s string
	switch ev.Kind {
	case model.EventItemAdded:
		s = "added for " + ev.Detail
	case model.EventItemRented:
		s = fmt.Sprintf("rented to %s for %s", notify.Mention(ev.UserID), ev.Detail)
	case model.EventItemPaid:
		s = "marked paid for " + notify.Mention(ev.UserID)
	case model.EventItemReturned:
		s = "returned from " + notify.Mention(ev.UserID)
	case model.EventItemExpired:
		s = "expired for " + notify.Mention(ev.UserID)
	case model.EventItemDeleted:
		s = "deleted"
	case model.EventProofSubmitted:
		s = "proof submitted by " + notify.Mention(ev.UserID)
	case model.EventProofRejected:
		s = "proof rejected for " + notify.Mention(ev.UserID)
	default:
		s = ev.Kind
	}
	if ev.ActorID != "" {
		s += " by " + notify.Mention(ev.ActorID)
	}
	return s
}
