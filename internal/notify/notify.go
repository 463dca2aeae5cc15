// Package notify defines the boundary through which rental events reach
// users, the log channel and live displays.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Clownyz/rentals-bot/internal/metrics"
)

// TargetKind selects where a message is delivered.
type TargetKind int

const (
	// DirectUser is a private message to Target.UserID.
	DirectUser TargetKind = iota
	// LogChannel is the admins' log channel.
	LogChannel
	// Broadcast reaches live displays only.
	Broadcast
)

func (k TargetKind) String() string {
	switch k {
	case DirectUser:
		return "direct"
	case LogChannel:
		return "log"
	case Broadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target is the destination of a message.
type Target struct {
	Kind   TargetKind
	UserID string
}

// ToUser targets a private message to userID.
func ToUser(userID string) Target { return Target{Kind: DirectUser, UserID: userID} }

// ToLog targets the log channel.
func ToLog() Target { return Target{Kind: LogChannel} }

// ToDisplays targets live displays only.
func ToDisplays() Target { return Target{Kind: Broadcast} }

// Message is one notification. Kind is an event kind from the model
// package; ItemName, UserID and ProofID are set when they apply.
type Message struct {
	Target      Target
	Kind        string
	Text        string
	Attachments []string
	ItemName    string
	UserID      string
	ProofID     string
	Time        time.Time
}

// Public reports whether the message may be shown outside a private
// conversation.
func (m Message) Public() bool {
	return m.Target.Kind != DirectUser
}

// Notifier delivers messages. Delivery is best effort; callers log the error
// and carry on.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, msg Message) error

func (f Func) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Discard drops every message.
var Discard Notifier = Func(func(context.Context, Message) error { return nil })

type sink struct {
	name string
	n    Notifier
}

// Fanout delivers every message to all registered sinks. A failing sink does
// not stop delivery to the others.
type Fanout struct {
	sinks []sink
}

// NewFanout returns an empty Fanout.
func NewFanout() *Fanout {
	return &Fanout{}
}

// Add registers a named sink. Not safe for use once Notify is being called.
func (f *Fanout) Add(name string, n Notifier) {
	f.sinks = append(f.sinks, sink{name: name, n: n})
}

// Notify delivers msg to every sink and joins their errors.
func (f *Fanout) Notify(ctx context.Context, msg Message) error {
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.n.Notify(ctx, msg); err != nil {
			metrics.NotifyFailures.WithLabelValues(s.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Send delivers msg and logs a failure instead of returning it.
func Send(ctx context.Context, n Notifier, msg Message) {
	if err := n.Notify(ctx, msg); err != nil {
		slog.Warn("notification failed",
			"kind", msg.Kind, "target", msg.Target.Kind.String(), "user", msg.Target.UserID, "error", err)
	}
}

// Logger writes every message to slog. Used when no chat platform is
// connected.
type Logger struct{}

func (Logger) Notify(_ context.Context, msg Message) error {
	slog.Info("notification",
		"target", msg.Target.Kind.String(),
		"user", msg.Target.UserID,
		"kind", msg.Kind,
		"item", msg.ItemName,
		"text", msg.Text,
	)
	return nil
}

// Mention renders a user reference the chat platform expands to a name.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
