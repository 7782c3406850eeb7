package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength bounds message content, in runes, after trimming.
const MaxContentLength = 1000

type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	ReceiverID  uuid.UUID  `json:"receiver_id"`
	Content     string     `json:"content"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	// Joined fields
	SenderUsername string `json:"sender_username,omitempty"`
}
