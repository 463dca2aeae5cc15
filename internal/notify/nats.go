package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by NATS.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON payload published for each public message.
type Event struct {
	Kind        string    `json:"kind"`
	Text        string    `json:"text"`
	ItemName    string    `json:"item_name,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	ProofID     string    `json:"proof_id,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	Time        time.Time `json:"time"`
}

// EventFromMessage builds the published payload for msg.
func EventFromMessage(msg Message) Event {
	return Event{
		Kind:        msg.Kind,
		Text:        msg.Text,
		ItemName:    msg.ItemName,
		UserID:      msg.UserID,
		ProofID:     msg.ProofID,
		Attachments: msg.Attachments,
		Time:        msg.Time,
	}
}

// NATS publishes public messages to "<prefix>.<kind>". Private messages are
// not published.
type NATS struct {
	pub    Publisher
	prefix string
}

// NewNATS returns a NATS sink publishing through pub.
func NewNATS(pub Publisher, prefix string) *NATS {
	return &NATS{pub: pub, prefix: prefix}
}

// ConnectNATS dials the NATS server at url.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("rentals-bot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return nc, nil
}

func (n *NATS) Notify(_ context.Context, msg Message) error {
	if !msg.Public() {
		return nil
	}

	data, err := json.Marshal(EventFromMessage(msg))
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	subject := n.prefix + "." + msg.Kind
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
