package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
	"github.com/vedran77/relay/internal/presence"
	"github.com/vedran77/relay/internal/repository"
)

// ChatService is the delivery router: it persists every message first and
// only then attempts a best-effort push to the receiver's live connection.
// The persisted record is the canonical copy; live delivery is never
// guaranteed and never fails a send.
type ChatService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	registry    *presence.Registry
}

func NewChatService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, registry *presence.Registry) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		registry:    registry,
	}
}

// Send persists a message from senderID to receiverID and relays it to the
// receiver's live connection when one is registered. The returned delivered
// flag reflects the push hand-off, not a read receipt. Send is not
// idempotent: every call creates a new message.
func (s *ChatService) Send(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, bool, error) {
	if senderID == receiverID {
		return nil, false, domain.ErrSelfMessage
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, false, fmt.Errorf("looking up receiver: %w", err)
	}
	if receiver == nil {
		return nil, false, domain.ErrUserNotFound
	}

	// Durability point. If this fails nothing is relayed.
	msg, err := s.messageRepo.Create(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, false, err
	}

	// Presence lookup happens strictly after the persist, so a concurrent
	// disconnect simply downgrades to store-only delivery.
	delivered := false
	if h, ok := s.registry.Lookup(receiverID); ok {
		delivered = h.PushMessage(msg)
		if !delivered {
			log.Printf("chat: push to %s failed, message %s stays store-only", receiverID, msg.ID)
		}
	}

	if delivered {
		if err := s.messageRepo.MarkDelivered(ctx, msg.ID); err != nil {
			log.Printf("chat: marking message %s delivered: %v", msg.ID, err)
		}
	}

	return msg, delivered, nil
}

// Conversation returns the message history between userID and otherID,
// oldest first.
func (s *ChatService) Conversation(ctx context.Context, userID, otherID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	return s.messageRepo.GetConversation(ctx, userID, otherID, limit, offset)
}

// MarkRead marks a single message as read by readerID. Messages not
// addressed to the reader, already-read messages and unknown ids are all
// the same silent no-op. When a message transitions to read, the sender's
// live connection gets a best-effort read receipt.
func (s *ChatService) MarkRead(ctx context.Context, messageID, readerID uuid.UUID) error {
	msg, err := s.messageRepo.MarkAsRead(ctx, messageID, readerID)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	if h, ok := s.registry.Lookup(msg.SenderID); ok {
		if !h.PushRead(msg) {
			log.Printf("chat: read receipt push to %s failed", msg.SenderID)
		}
	}
	return nil
}

// MarkConversationRead marks all unread messages from otherID to userID
// as read.
func (s *ChatService) MarkConversationRead(ctx context.Context, userID, otherID uuid.UUID) error {
	return s.messageRepo.MarkConversationAsRead(ctx, userID, otherID)
}

// UnreadCount returns how many unread messages are addressed to
// receiverID, optionally from a single sender.
func (s *ChatService) UnreadCount(ctx context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int, error) {
	return s.messageRepo.GetUnreadCount(ctx, receiverID, senderID)
}
