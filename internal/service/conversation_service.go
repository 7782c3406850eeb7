package service

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
	"github.com/vedran77/relay/internal/repository"
	"golang.org/x/sync/errgroup"
)

// previewFanOutLimit caps the concurrent per-user lookups when building
// the conversation list.
const previewFanOutLimit = 8

// ConversationService is the read side: it aggregates the user directory
// with last messages and unread counts into the conversation list.
type ConversationService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

func NewConversationService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *ConversationService {
	return &ConversationService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// ListWithPreviews returns every other user with the most recent message
// exchanged with them and the count of their unread messages, most recent
// conversation first. Users with no message history sort last, keeping
// their directory order. A failed lookup degrades that one entry to
// {nil, 0} instead of failing the whole listing.
func (s *ConversationService) ListWithPreviews(ctx context.Context, userID uuid.UUID) ([]domain.ConversationPreview, error) {
	users, err := s.userRepo.ListAllExcept(ctx, userID)
	if err != nil {
		return nil, err
	}

	previews := make([]domain.ConversationPreview, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewFanOutLimit)
	for i := range users {
		g.Go(func() error {
			other := &users[i]
			previews[i] = s.preview(gctx, userID, other)
			return nil
		})
	}
	// Workers never return errors; per-user failures degrade in preview.
	_ = g.Wait()

	sort.SliceStable(previews, func(a, b int) bool {
		pa, pb := previews[a].LastMessage, previews[b].LastMessage
		switch {
		case pa == nil && pb == nil:
			return false
		case pa == nil:
			return false
		case pb == nil:
			return true
		default:
			return pa.SentAt.After(pb.SentAt)
		}
	})

	return previews, nil
}

func (s *ConversationService) preview(ctx context.Context, userID uuid.UUID, other *domain.User) domain.ConversationPreview {
	p := domain.ConversationPreview{User: other.Public()}

	last, err := s.messageRepo.GetLastMessage(ctx, userID, other.ID)
	if err != nil {
		log.Printf("conversations: last message for %s: %v", other.ID, err)
		return p
	}

	unread, err := s.messageRepo.GetUnreadCount(ctx, userID, &other.ID)
	if err != nil {
		log.Printf("conversations: unread count for %s: %v", other.ID, err)
		return p
	}

	p.LastMessage = last
	p.UnreadCount = unread
	return p
}
