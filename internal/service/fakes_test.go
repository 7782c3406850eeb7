package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
)

// memMessageRepo is an in-memory MessageRepository honoring the store
// contract (trimming, rejection, ordering, read transitions).
type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message

	failCreate      error
	failLastMessage map[uuid.UUID]error
	failUnread      map[uuid.UUID]error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{
		failLastMessage: map[uuid.UUID]error{},
		failUnread:      map[uuid.UUID]error{},
	}
}

func (r *memMessageRepo) Create(_ context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error) {
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return nil, domain.ErrContentTooLong
	}

	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		SentAt:     time.Now(),
	}
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	return &msg, nil
}

func (r *memMessageRepo) GetConversation(_ context.Context, userA, userB uuid.UUID, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Message{}
	for _, m := range r.messages {
		if betweenPair(&m, userA, userB) {
			out = append(out, m)
		}
	}
	if offset >= len(out) {
		return []domain.Message{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMessageRepo) GetLastMessage(_ context.Context, userA, userB uuid.UUID) (*domain.Message, error) {
	if err := r.failLastMessage[userB]; err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *domain.Message
	for i := range r.messages {
		m := r.messages[i]
		if betweenPair(&m, userA, userB) && (last == nil || m.SentAt.After(last.SentAt)) {
			last = &m
		}
	}
	if last == nil {
		return nil, nil
	}
	c := *last
	return &c, nil
}

func (r *memMessageRepo) GetUnreadCount(_ context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int, error) {
	if senderID != nil {
		if err := r.failUnread[*senderID]; err != nil {
			return 0, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.ReceiverID != receiverID || m.ReadAt != nil {
			continue
		}
		if senderID != nil && m.SenderID != *senderID {
			continue
		}
		count++
	}
	return count, nil
}

func (r *memMessageRepo) MarkAsRead(_ context.Context, messageID, receiverID uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		m := &r.messages[i]
		if m.ID == messageID && m.ReceiverID == receiverID && m.ReadAt == nil {
			now := time.Now()
			m.ReadAt = &now
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memMessageRepo) MarkConversationAsRead(_ context.Context, receiverID, senderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := range r.messages {
		m := &r.messages[i]
		if m.ReceiverID == receiverID && m.SenderID == senderID && m.ReadAt == nil {
			m.ReadAt = &now
		}
	}
	return nil
}

func (r *memMessageRepo) MarkDelivered(_ context.Context, messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		m := &r.messages[i]
		if m.ID == messageID && m.DeliveredAt == nil {
			now := time.Now()
			m.DeliveredAt = &now
		}
	}
	return nil
}

func (r *memMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *memMessageRepo) get(id uuid.UUID) *domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			c := r.messages[i]
			return &c
		}
	}
	return nil
}

func betweenPair(m *domain.Message, userA, userB uuid.UUID) bool {
	return (m.SenderID == userA && m.ReceiverID == userB) ||
		(m.SenderID == userB && m.ReceiverID == userA)
}

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	order []uuid.UUID
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{users: map[uuid.UUID]*domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
		r.order = append(r.order, u.ID)
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ListAllExcept(_ context.Context, id uuid.UUID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, uid := range r.order {
		if uid == id {
			continue
		}
		out = append(out, *r.users[uid])
	}
	return out, nil
}

func (r *memUserRepo) UpdateOnlineStatus(_ context.Context, id uuid.UUID, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Online = online
	}
	return nil
}

func (r *memUserRepo) UpdateLastSeen(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		now := time.Now()
		u.LastSeenAt = &now
	}
	return nil
}

// recordingHandle is a presence.Handle that records pushes.
type recordingHandle struct {
	mu       sync.Mutex
	accept   bool
	messages []*domain.Message
	reads    []*domain.Message
}

func newRecordingHandle(accept bool) *recordingHandle {
	return &recordingHandle{accept: accept}
}

func (h *recordingHandle) PushMessage(msg *domain.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.accept {
		return false
	}
	h.messages = append(h.messages, msg)
	return true
}

func (h *recordingHandle) PushRead(msg *domain.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.accept {
		return false
	}
	h.reads = append(h.reads, msg)
	return true
}

func (h *recordingHandle) Close(string) {}

var errStorage = errors.New("storage failure")
