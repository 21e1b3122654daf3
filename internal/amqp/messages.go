package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message types carried on the queue.
const (
	TypeDonationCreated    = "donation.created"
	TypeReconcileRequested = "totals.reconcile"
)

// Message is a lightweight event; consumers load the donation from the store.
type Message struct {
	Type       string    `json:"type"`
	DonationID string    `json:"donationId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDonationCreated announces a stored donation.
func NewDonationCreated(id string) *Message {
	return &Message{Type: TypeDonationCreated, DonationID: id, Timestamp: time.Now().UTC()}
}

// NewReconcileRequest asks a worker to recompute derived totals.
func NewReconcileRequest() *Message {
	return &Message{Type: TypeReconcileRequested, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and checks a message.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeDonationCreated:
		if msg.DonationID == "" {
			return nil, errors.New("donation.created message without donation id")
		}
	case TypeReconcileRequested:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return &msg, nil
}
