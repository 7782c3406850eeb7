package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/relay/internal/domain"
)

const messageColumns = `m.id, m.sender_id, m.receiver_id, m.content,
			m.sent_at, m.read_at, m.delivered_at, u.username`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return nil, domain.ErrContentTooLong
	}

	msg := &domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		SentAt:     time.Now(),
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, sent_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return msg, nil
}

func (r *MessageRepo) GetConversation(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
			OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.sent_at ASC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, userA, userB, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) GetLastMessage(ctx context.Context, userA, userB uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
			OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.sent_at DESC
		LIMIT 1`

	var msg domain.Message
	err := scanMessage(r.pool.QueryRow(ctx, query, userA, userB), &msg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) GetUnreadCount(ctx context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int, error) {
	var count int
	var err error
	if senderID != nil {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND sender_id = $2 AND read_at IS NULL`,
			receiverID, *senderID,
		).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read_at IS NULL`,
			receiverID,
		).Scan(&count)
	}
	return count, err
}

func (r *MessageRepo) MarkAsRead(ctx context.Context, messageID, receiverID uuid.UUID) (*domain.Message, error) {
	// The receiver_id guard doubles as the authorization check: a caller
	// who is not the receiver gets the same silent no-op as an already-read
	// or missing message.
	query := `
		UPDATE messages m SET read_at = $1
		FROM users u
		WHERE m.id = $2 AND m.receiver_id = $3 AND m.read_at IS NULL
			AND u.id = m.sender_id
		RETURNING ` + messageColumns

	var msg domain.Message
	err := scanMessage(r.pool.QueryRow(ctx, query, time.Now(), messageID, receiverID), &msg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) MarkConversationAsRead(ctx context.Context, receiverID, senderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET read_at = $1 WHERE receiver_id = $2 AND sender_id = $3 AND read_at IS NULL`,
		time.Now(), receiverID, senderID,
	)
	return err
}

func (r *MessageRepo) MarkDelivered(ctx context.Context, messageID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET delivered_at = $1 WHERE id = $2 AND delivered_at IS NULL`,
		time.Now(), messageID,
	)
	return err
}

func scanMessage(row pgx.Row, msg *domain.Message) error {
	return row.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content,
		&msg.SentAt, &msg.ReadAt, &msg.DeliveredAt, &msg.SenderUsername,
	)
}
