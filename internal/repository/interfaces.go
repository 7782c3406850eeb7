package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListAllExcept(ctx context.Context, id uuid.UUID) ([]domain.User, error)
	UpdateOnlineStatus(ctx context.Context, id uuid.UUID, online bool) error
	UpdateLastSeen(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	// Create validates, trims and persists a new message, assigning its id
	// and sent_at. The persisted record is the canonical copy.
	Create(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error)
	// GetConversation returns both directions of the pair, sent_at ascending.
	GetConversation(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]domain.Message, error)
	// GetLastMessage returns the most recent message in either direction,
	// or nil when the pair has never exchanged one.
	GetLastMessage(ctx context.Context, userA, userB uuid.UUID) (*domain.Message, error)
	// GetUnreadCount counts unread messages addressed to receiverID,
	// optionally filtered to one sender.
	GetUnreadCount(ctx context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int, error)
	// MarkAsRead sets read_at once, only when the message is addressed to
	// receiverID and still unread. Returns the updated message, or nil when
	// nothing changed (already read, wrong receiver, or no such message —
	// indistinguishable on purpose).
	MarkAsRead(ctx context.Context, messageID, receiverID uuid.UUID) (*domain.Message, error)
	// MarkConversationAsRead sets read_at on all unread messages from
	// senderID to receiverID.
	MarkConversationAsRead(ctx context.Context, receiverID, senderID uuid.UUID) error
	// MarkDelivered records the best-effort live delivery timestamp.
	MarkDelivered(ctx context.Context, messageID uuid.UUID) error
}
