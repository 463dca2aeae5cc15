// Package bot turns chat commands into rental operations. It knows nothing
// about the chat platform beyond user IDs and an admin flag.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Clownyz/rentals-bot/internal/auth"
	"github.com/Clownyz/rentals-bot/internal/imaging"
	"github.com/Clownyz/rentals-bot/internal/metrics"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

// Caller identifies who issued a command.
type Caller struct {
	UserID  string
	IsAdmin bool
}

// Options configures a Handler.
type Options struct {
	Prefix        string
	ProofsChannel string
	PanelSecret   string
	PanelBaseURL  string
	PanelTTL      time.Duration
	// FetchProof downloads and processes a proof attachment. Defaults to
	// imaging.FetchAndProcess with a 15s HTTP client.
	FetchProof func(ctx context.Context, url string) (*imaging.Proof, error)
}

// Handler dispatches commands against the rental service and forwards the
// resulting notifications.
type Handler struct {
	rentals  *rental.Service
	notifier notify.Notifier
	opts     Options
}

// New returns a Handler.
func New(rentals *rental.Service, notifier notify.Notifier, opts Options) *Handler {
	if notifier == nil {
		notifier = notify.Discard
	}
	if opts.Prefix == "" {
		opts.Prefix = "?"
	}
	if opts.ProofsChannel == "" {
		opts.ProofsChannel = "proofs"
	}
	if opts.FetchProof == nil {
		client := &http.Client{Timeout: 15 * time.Second}
		opts.FetchProof = func(ctx context.Context, url string) (*imaging.Proof, error) {
			return imaging.FetchAndProcess(ctx, client, url)
		}
	}
	return &Handler{rentals: rentals, notifier: notifier, opts: opts}
}

var knownActions = map[string]bool{
	"add": true, "rent": true, "paid": true, "return": true, "remove": true, "list": true,
}

// Command results recorded in metrics.
const (
	resultOK        = "ok"
	resultRejected  = "rejected"
	resultUserError = "user_error"
	resultFailed    = "failed"
)

// Handle runs the command in content. The second result is false when
// content is not addressed to the bot.
func (h *Handler) Handle(ctx context.Context, caller Caller, content string) (Response, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), h.opts.Prefix)
	if !ok {
		return Response{}, false
	}

	args, err := tokenize(rest)
	if err != nil {
		return textResponse("Could not parse command: " + err.Error() + "."), true
	}
	if len(args) == 0 {
		return Response{}, false
	}

	cmd := strings.ToLower(args[0])
	name := cmd
	if (cmd == "item" || cmd == "blacklist") && len(args) > 1 && knownActions[strings.ToLower(args[1])] {
		name = cmd + " " + strings.ToLower(args[1])
	}

	var resp Response
	var result string
	switch cmd {
	case "item":
		resp, result = h.item(ctx, caller, args[1:])
	case "delete":
		resp, result = h.delete(ctx, caller, args[1:])
	case "list":
		resp, result = h.list(ctx)
	case "history":
		resp, result = h.history(ctx, caller, args[1:])
	case "blacklist":
		resp, result = h.blacklist(ctx, caller, args[1:])
	case "panel":
		resp, result = h.panel(ctx, caller)
	case "help":
		resp, result = h.help(), resultOK
	default:
		return Response{}, false
	}

	countCommand(name, result)
	return resp, true
}

func countCommand(command, result string) {
	metrics.CommandsTotal.WithLabelValues(command, result).Inc()
}

func adminOnly() (Response, string) {
	return textResponse("Admin only."), resultRejected
}

// failure maps an operation error onto a reply. name and userID fill in
// the state-conflict messages.
func failure(op string, err error, name, userID string) (Response, string) {
	var verr *rental.ValidationError
	switch {
	case errors.As(err, &verr):
		return textResponse(capitalize(verr.Message) + "."), resultUserError
	case errors.Is(err, rental.ErrBlacklisted):
		return textResponse(notify.Mention(userID) + " is blacklisted."), resultUserError
	case errors.Is(err, rental.ErrNotFound):
		return textResponse(fmt.Sprintf("Set **%s** not found.", name)), resultUserError
	case errors.Is(err, rental.ErrAlreadyRented):
		return textResponse(fmt.Sprintf("**%s** is already rented. Return it first.", name)), resultUserError
	case errors.Is(err, rental.ErrNotRented):
		return textResponse(fmt.Sprintf("**%s** is not rented.", name)), resultUserError
	}

	slog.Error("command failed", "op", op, "item", name, "user", userID, "error", err)
	return textResponse("Something went wrong, please try again later."), resultFailed
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (h *Handler) help() Response {
	p := h.opts.Prefix
	return Response{
		Title: "Commands",
		Fields: []Field{
			{Name: p + "list", Value: "Show all sets and their status"},
			{Name: p + "item add <name> <price> <coins|money>", Value: "Add or replace a set (admin)"},
			{Name: p + "item rent <name> @user <24h|7d|2w|1m>", Value: "Rent a set; non-admins may only rent to themselves"},
			{Name: p + "item paid <name>", Value: "Mark the current rental as paid (admin)"},
			{Name: p + "item return <name>", Value: "Return a set early (admin)"},
			{Name: p + "delete <name>", Value: "Delete a set (admin)"},
			{Name: p + "history <name>", Value: "Show a set's rental history (admin)"},
			{Name: p + "blacklist add @user [reason]", Value: "Bar a user from renting (admin)"},
			{Name: p + "blacklist remove @user", Value: "Lift a ban (admin)"},
			{Name: p + "blacklist list", Value: "Show banned users (admin)"},
			{Name: p + "panel", Value: "DM yourself a link to the web panel"},
		},
	}
}

func (h *Handler) panel(ctx context.Context, caller Caller) (Response, string) {
	if h.opts.PanelSecret == "" {
		return textResponse("The web panel is not configured."), resultUserError
	}

	token, err := auth.GenerateToken(h.opts.PanelSecret, caller.UserID, caller.IsAdmin, h.opts.PanelTTL)
	if err != nil {
		return failure("panel", err, "", caller.UserID)
	}

	err = h.notifier.Notify(ctx, notify.Message{
		Target: notify.ToUser(caller.UserID),
		Kind:   "panel_link",
		Text:   "Your panel link (keep it private): " + auth.PanelURL(h.opts.PanelBaseURL, token),
		UserID: caller.UserID,
	})
	if err != nil {
		slog.Warn("panel link not delivered", "user", caller.UserID, "error", err)
		return textResponse("I could not DM you. Enable direct messages and try again."), resultFailed
	}
	return Response{Text: "Sent you a panel link in DMs.", Ephemeral: true}, resultOK
}
