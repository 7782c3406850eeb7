package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeMessageSend = "message.send"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageAck     = "message.ack"
	EventTypeMessageReceive = "message.receive"
	EventTypeMessageRead    = "message.read"
	EventTypePresence       = "presence"
	EventTypePong           = "pong"
	EventTypeError          = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

// MessageSendPayload submits a message over the live connection. Nonce is
// the caller's correlation token for optimistic-UI reconciliation; the
// server echoes it on the ack and attaches no meaning to it.
type MessageSendPayload struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
	Nonce      string    `json:"nonce,omitempty"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

// MessageAckPayload acknowledges a send with the canonical persisted
// message. Delivered reflects the live push hand-off, not a read receipt.
type MessageAckPayload struct {
	Message   *domain.Message `json:"message"`
	Delivered bool            `json:"delivered"`
	Nonce     string          `json:"nonce,omitempty"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Nonce   string `json:"nonce,omitempty"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
