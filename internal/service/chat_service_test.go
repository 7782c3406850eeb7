package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relay/internal/domain"
	"github.com/vedran77/relay/internal/presence"
)

func chatFixture(t *testing.T) (*ChatService, *memMessageRepo, *presence.Registry, *domain.User, *domain.User) {
	t.Helper()
	alice := &domain.User{ID: uuid.New(), Username: "alice"}
	bob := &domain.User{ID: uuid.New(), Username: "bob"}
	messages := newMemMessageRepo()
	registry := presence.NewRegistry()
	svc := NewChatService(messages, newMemUserRepo(alice, bob), registry)
	return svc, messages, registry, alice, bob
}

func Test_Send_Receiver_Online(t *testing.T) {
	req := require.New(t)
	svc, messages, registry, alice, bob := chatFixture(t)

	h := newRecordingHandle(true)
	registry.Register(bob.ID, h)

	msg, delivered, err := svc.Send(context.Background(), alice.ID, bob.ID, "hi")
	req.NoError(err)
	req.True(delivered)
	req.Equal(alice.ID, msg.SenderID)
	req.Equal(bob.ID, msg.ReceiverID)
	req.Equal("hi", msg.Content)
	req.False(msg.SentAt.IsZero())

	req.Len(h.messages, 1)
	req.Equal(msg.ID, h.messages[0].ID)
	req.Equal(1, messages.count())

	// Live push also records the secondary delivered_at signal.
	stored := messages.get(msg.ID)
	req.NotNil(stored.DeliveredAt)
}

func Test_Send_Receiver_Offline_Falls_Back_To_Store(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, bob := chatFixture(t)

	msg, delivered, err := svc.Send(context.Background(), alice.ID, bob.ID, "hi")
	req.NoError(err)
	req.False(delivered)
	req.Equal(1, messages.count())
	req.Nil(messages.get(msg.ID).DeliveredAt)
}

func Test_Send_Push_Rejected_Still_Succeeds(t *testing.T) {
	req := require.New(t)
	svc, messages, registry, alice, bob := chatFixture(t)

	// Handle with a full buffer: push hand-off fails, send must not.
	registry.Register(bob.ID, newRecordingHandle(false))

	msg, delivered, err := svc.Send(context.Background(), alice.ID, bob.ID, "hi")
	req.NoError(err)
	req.False(delivered)
	req.NotNil(msg)
	req.Equal(1, messages.count())
}

func Test_Send_To_Self_Rejected(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, _ := chatFixture(t)

	_, _, err := svc.Send(context.Background(), alice.ID, alice.ID, "hi me")
	req.ErrorIs(err, domain.ErrSelfMessage)
	req.Equal(0, messages.count())
}

func Test_Send_Unknown_Receiver_Rejected(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, _ := chatFixture(t)

	_, _, err := svc.Send(context.Background(), alice.ID, uuid.New(), "hello?")
	req.ErrorIs(err, domain.ErrUserNotFound)
	req.Equal(0, messages.count())
}

func Test_Send_Empty_Content_Rejected(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, bob := chatFixture(t)

	for _, content := range []string{"", "   ", "\n\t "} {
		_, _, err := svc.Send(context.Background(), alice.ID, bob.ID, content)
		req.ErrorIs(err, domain.ErrEmptyContent)
	}
	req.Equal(0, messages.count())
}

func Test_Send_Content_Trimmed(t *testing.T) {
	req := require.New(t)
	svc, _, _, alice, bob := chatFixture(t)

	msg, _, err := svc.Send(context.Background(), alice.ID, bob.ID, "  hello  \n")
	req.NoError(err)
	req.Equal("hello", msg.Content)
}

func Test_Send_Content_Too_Long_Rejected(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, bob := chatFixture(t)

	_, _, err := svc.Send(context.Background(), alice.ID, bob.ID, strings.Repeat("x", domain.MaxContentLength+1))
	req.ErrorIs(err, domain.ErrContentTooLong)
	req.Equal(0, messages.count())
}

func Test_Send_Storage_Failure_Aborts_Without_Push(t *testing.T) {
	req := require.New(t)
	svc, messages, registry, alice, bob := chatFixture(t)

	h := newRecordingHandle(true)
	registry.Register(bob.ID, h)
	messages.failCreate = errStorage

	_, delivered, err := svc.Send(context.Background(), alice.ID, bob.ID, "hi")
	req.ErrorIs(err, errStorage)
	req.False(delivered)
	req.Empty(h.messages)
}

func Test_Conversation_Symmetric(t *testing.T) {
	req := require.New(t)
	svc, _, _, alice, bob := chatFixture(t)
	ctx := context.Background()

	_, _, err := svc.Send(ctx, alice.ID, bob.ID, "one")
	req.NoError(err)
	_, _, err = svc.Send(ctx, bob.ID, alice.ID, "two")
	req.NoError(err)
	_, _, err = svc.Send(ctx, alice.ID, bob.ID, "three")
	req.NoError(err)

	ab, err := svc.Conversation(ctx, alice.ID, bob.ID, 50, 0)
	req.NoError(err)
	ba, err := svc.Conversation(ctx, bob.ID, alice.ID, 50, 0)
	req.NoError(err)

	req.Equal(ab, ba)
	req.Len(ab, 3)
	req.Equal("one", ab[0].Content)
	req.Equal("three", ab[2].Content)
}

func Test_MarkRead_Idempotent(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, bob := chatFixture(t)
	ctx := context.Background()

	msg, _, err := svc.Send(ctx, alice.ID, bob.ID, "hi")
	req.NoError(err)

	req.NoError(svc.MarkRead(ctx, msg.ID, bob.ID))
	first := messages.get(msg.ID).ReadAt
	req.NotNil(first)

	req.NoError(svc.MarkRead(ctx, msg.ID, bob.ID))
	req.Equal(first, messages.get(msg.ID).ReadAt)
}

func Test_MarkRead_Wrong_User_Is_Silent_Noop(t *testing.T) {
	req := require.New(t)
	svc, messages, _, alice, bob := chatFixture(t)
	ctx := context.Background()

	msg, _, err := svc.Send(ctx, alice.ID, bob.ID, "hi")
	req.NoError(err)

	// The sender (or anyone who is not the receiver) cannot mark it read,
	// and learns nothing from the attempt.
	req.NoError(svc.MarkRead(ctx, msg.ID, alice.ID))
	req.Nil(messages.get(msg.ID).ReadAt)

	req.NoError(svc.MarkRead(ctx, uuid.New(), bob.ID))
}

func Test_MarkRead_Pushes_Receipt_To_Sender(t *testing.T) {
	req := require.New(t)
	svc, _, registry, alice, bob := chatFixture(t)
	ctx := context.Background()

	h := newRecordingHandle(true)
	registry.Register(alice.ID, h)

	msg, _, err := svc.Send(ctx, alice.ID, bob.ID, "hi")
	req.NoError(err)

	req.NoError(svc.MarkRead(ctx, msg.ID, bob.ID))
	req.Len(h.reads, 1)
	req.Equal(msg.ID, h.reads[0].ID)
	req.NotNil(h.reads[0].ReadAt)
}

func Test_UnreadCount(t *testing.T) {
	req := require.New(t)
	svc, _, _, alice, bob := chatFixture(t)
	ctx := context.Background()

	m1, _, err := svc.Send(ctx, alice.ID, bob.ID, "one")
	req.NoError(err)
	_, _, err = svc.Send(ctx, alice.ID, bob.ID, "two")
	req.NoError(err)
	_, _, err = svc.Send(ctx, alice.ID, bob.ID, "three")
	req.NoError(err)
	req.NoError(svc.MarkRead(ctx, m1.ID, bob.ID))

	count, err := svc.UnreadCount(ctx, bob.ID, &alice.ID)
	req.NoError(err)
	req.Equal(2, count)

	count, err = svc.UnreadCount(ctx, bob.ID, nil)
	req.NoError(err)
	req.Equal(2, count)
}

func Test_MarkConversationRead(t *testing.T) {
	req := require.New(t)
	svc, _, _, alice, bob := chatFixture(t)
	ctx := context.Background()

	_, _, err := svc.Send(ctx, alice.ID, bob.ID, "one")
	req.NoError(err)
	_, _, err = svc.Send(ctx, alice.ID, bob.ID, "two")
	req.NoError(err)

	req.NoError(svc.MarkConversationRead(ctx, bob.ID, alice.ID))

	count, err := svc.UnreadCount(ctx, bob.ID, &alice.ID)
	req.NoError(err)
	req.Equal(0, count)
}
