package domain

// ConversationPreview is one row of the conversation list: the other
// participant, the most recent message in either direction (nil when the
// pair has never exchanged one) and how many of their messages the
// requesting user has not read yet.
type ConversationPreview struct {
	User        *User    `json:"user"`
	LastMessage *Message `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
}
