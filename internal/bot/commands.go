package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

func (h *Handler) item(ctx context.Context, caller Caller, args []string) (Response, string) {
	if len(args) == 0 {
		return textResponse("Usage: item <add|rent|paid|return> <name> ..."), resultUserError
	}

	action := strings.ToLower(args[0])
	if action != "rent" && !caller.IsAdmin {
		return adminOnly()
	}
	if len(args) < 2 {
		return textResponse("Specify the set name."), resultUserError
	}
	name := rental.NormalizeName(args[1])

	switch action {
	case "add":
		return h.itemAdd(ctx, caller, name, args[2:])
	case "rent":
		return h.itemRent(ctx, caller, name, args[2:])
	case "paid":
		return h.itemPaid(ctx, caller, name)
	case "return":
		return h.itemReturn(ctx, caller, name)
	default:
		return textResponse(fmt.Sprintf("Unknown action %q. Use add, rent, paid or return.", action)), resultUserError
	}
}

func (h *Handler) itemAdd(ctx context.Context, caller Caller, name string, args []string) (Response, string) {
	var price int64
	var currency string
	var err error

	switch len(args) {
	case 1:
		price, currency, err = rental.ParsePriceSpec(args[0])
	case 2:
		price, err = rental.ParsePrice(args[0])
		currency = args[1]
	default:
		return textResponse("Specify price (e.g., 1000 coins or 1000 money)"), resultUserError
	}
	if err != nil {
		return failure("item add", err, name, "")
	}

	item, err := h.rentals.AddItem(ctx, caller.UserID, name, price, currency)
	if err != nil {
		return failure("item add", err, name, "")
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToDisplays(),
		Kind:     model.EventItemAdded,
		Text:     fmt.Sprintf("Added %s for %s", item.Name, FormatPrice(item.Price, item.Currency)),
		ItemName: item.Name,
	})
	return textResponse(fmt.Sprintf("Added **%s** for %s", item.Name, FormatPrice(item.Price, item.Currency))), resultOK
}

func (h *Handler) itemRent(ctx context.Context, caller Caller, name string, args []string) (Response, string) {
	if len(args) == 0 {
		return textResponse("Mention a user to rent the item to."), resultUserError
	}
	userID, ok := parseMention(args[0])
	if !ok {
		return textResponse("Mention a user to rent the item to."), resultUserError
	}
	if !caller.IsAdmin && userID != caller.UserID {
		return textResponse("You can only rent sets to yourself."), resultRejected
	}
	if len(args) < 2 {
		return textResponse("Specify duration (e.g., 24h, 7d, 2w, 1m)"), resultUserError
	}
	spec := args[1]

	item, err := h.rentals.RentItem(ctx, caller.UserID, name, userID, spec)
	if err != nil {
		return failure("item rent", err, name, userID)
	}

	d, _ := rental.ParseDuration(spec)
	duration := rental.FormatDuration(d)

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToUser(userID),
		Kind:     model.EventItemRented,
		Text:     fmt.Sprintf("Your set **%s** is ready for %s. Send proof in **#%s**", item.Name, duration, h.opts.ProofsChannel),
		ItemName: item.Name,
		UserID:   userID,
	})
	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToLog(),
		Kind:     model.EventItemRented,
		Text:     fmt.Sprintf("RENTED: %s to %s for %s", item.Name, notify.Mention(userID), duration),
		ItemName: item.Name,
		UserID:   userID,
	})

	return textResponse(fmt.Sprintf("%s rented to %s for %s", item.Name, notify.Mention(userID), duration)), resultOK
}

func (h *Handler) itemPaid(ctx context.Context, caller Caller, name string) (Response, string) {
	item, err := h.rentals.MarkPaid(ctx, caller.UserID, name)
	if err != nil {
		return failure("item paid", err, name, "")
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToUser(item.RentedBy),
		Kind:     model.EventItemPaid,
		Text:     "Payment approved for " + item.Name,
		ItemName: item.Name,
		UserID:   item.RentedBy,
	})
	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToDisplays(),
		Kind:     model.EventItemPaid,
		Text:     fmt.Sprintf("%s marked paid", item.Name),
		ItemName: item.Name,
		UserID:   item.RentedBy,
	})
	return textResponse(fmt.Sprintf("**%s** marked as paid.", item.Name)), resultOK
}

func (h *Handler) itemReturn(ctx context.Context, caller Caller, name string) (Response, string) {
	ret, err := h.rentals.ReturnItem(ctx, caller.UserID, name)
	if err != nil {
		return failure("item return", err, name, "")
	}
	if ret.PreviousRenter == "" {
		return textResponse(fmt.Sprintf("%s returned", ret.Item.Name)), resultOK
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToUser(ret.PreviousRenter),
		Kind:     model.EventItemReturned,
		Text:     fmt.Sprintf("Your rental **%s** was returned.", ret.Item.Name),
		ItemName: ret.Item.Name,
		UserID:   ret.PreviousRenter,
	})
	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToLog(),
		Kind:     model.EventItemReturned,
		Text:     fmt.Sprintf("RETURNED: %s from %s", ret.Item.Name, notify.Mention(ret.PreviousRenter)),
		ItemName: ret.Item.Name,
		UserID:   ret.PreviousRenter,
	})
	return textResponse(fmt.Sprintf("%s returned", ret.Item.Name)), resultOK
}

func (h *Handler) delete(ctx context.Context, caller Caller, args []string) (Response, string) {
	if !caller.IsAdmin {
		return adminOnly()
	}
	if len(args) == 0 {
		return textResponse("Specify the set name."), resultUserError
	}
	name := rental.NormalizeName(args[0])

	if err := h.rentals.DeleteItem(ctx, caller.UserID, name); err != nil {
		return failure("delete", err, name, "")
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToDisplays(),
		Kind:     model.EventItemDeleted,
		Text:     fmt.Sprintf("%s deleted", name),
		ItemName: name,
	})
	return textResponse(fmt.Sprintf("Set **%s** deleted.", name)), resultOK
}

func (h *Handler) list(ctx context.Context) (Response, string) {
	l, err := h.rentals.Listing(ctx)
	if err != nil {
		return failure("list", err, "", "")
	}
	return RenderListing(l), resultOK
}

func (h *Handler) history(ctx context.Context, caller Caller, args []string) (Response, string) {
	if !caller.IsAdmin {
		return adminOnly()
	}
	if len(args) == 0 {
		return textResponse("Specify the set name."), resultUserError
	}
	name := rental.NormalizeName(args[0])

	events, err := h.rentals.History(ctx, name)
	if err != nil {
		return failure("history", err, name, "")
	}
	if len(events) > historyLimit {
		events = events[:historyLimit]
	}
	return RenderHistory(name, events), resultOK
}

const historyLimit = 15

func (h *Handler) blacklist(ctx context.Context, caller Caller, args []string) (Response, string) {
	if !caller.IsAdmin {
		return adminOnly()
	}
	if len(args) == 0 {
		return textResponse("Usage: blacklist <add|remove|list> ..."), resultUserError
	}

	action := strings.ToLower(args[0])
	if action == "list" {
		entries, err := h.rentals.ListBlacklist(ctx)
		if err != nil {
			return failure("blacklist list", err, "", "")
		}
		return RenderBlacklist(entries), resultOK
	}

	if len(args) < 2 {
		return textResponse("Mention the user."), resultUserError
	}
	userID, ok := parseMention(args[1])
	if !ok {
		return textResponse("Mention the user."), resultUserError
	}

	switch action {
	case "add":
		reason := strings.Join(args[2:], " ")
		if err := h.rentals.Blacklist(ctx, caller.UserID, userID, reason); err != nil {
			return failure("blacklist add", err, "", userID)
		}
		text := notify.Mention(userID) + " blacklisted"
		if reason != "" {
			text += ": " + reason
		}
		notify.Send(ctx, h.notifier, notify.Message{
			Target: notify.ToLog(),
			Kind:   model.EventUserBlacklisted,
			Text:   text,
			UserID: userID,
		})
		return textResponse(text), resultOK

	case "remove":
		removed, err := h.rentals.Unblacklist(ctx, caller.UserID, userID)
		if err != nil {
			return failure("blacklist remove", err, "", userID)
		}
		if !removed {
			return textResponse(notify.Mention(userID) + " is not blacklisted."), resultUserError
		}
		notify.Send(ctx, h.notifier, notify.Message{
			Target: notify.ToLog(),
			Kind:   model.EventUserUnblacklisted,
			Text:   notify.Mention(userID) + " removed from the blacklist",
			UserID: userID,
		})
		return textResponse(notify.Mention(userID) + " removed from the blacklist."), resultOK

	default:
		return textResponse(fmt.Sprintf("Unknown action %q. Use add, remove or list.", action)), resultUserError
	}
}
