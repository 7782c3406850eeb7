package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
	"github.com/vedran77/relay/internal/service"
	"github.com/vedran77/relay/internal/transport/http/middleware"
)

type ChatHandler struct {
	chatService         *service.ChatService
	conversationService *service.ConversationService
}

func NewChatHandler(chatService *service.ChatService, conversationService *service.ConversationService) *ChatHandler {
	return &ChatHandler{
		chatService:         chatService,
		conversationService: conversationService,
	}
}

type sendResponse struct {
	Message   *domain.Message `json:"message"`
	Delivered bool            `json:"delivered"`
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	receiverID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid receiver ID")
		return
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, delivered, err := h.chatService.Send(r.Context(), userID, receiverID, input.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfMessage):
			writeError(w, http.StatusBadRequest, "SELF_MESSAGE", "Cannot send a message to yourself")
		case errors.Is(err, domain.ErrEmptyContent):
			writeError(w, http.StatusBadRequest, "EMPTY_CONTENT", "Message content is required")
		case errors.Is(err, domain.ErrContentTooLong):
			writeError(w, http.StatusBadRequest, "CONTENT_TOO_LONG", "Message content exceeds the length limit")
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Receiver not found")
		default:
			log.Printf("ERROR send message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sendResponse{Message: msg, Delivered: delivered})
}

func (h *ChatHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	messages, err := h.chatService.Conversation(r.Context(), userID, otherID, limit, offset)
	if err != nil {
		log.Printf("ERROR get conversation: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	// Deliberately 204 regardless of whether anything changed: the
	// operation must not leak whether the message exists to a caller who
	// is not its receiver.
	if err := h.chatService.MarkRead(r.Context(), messageID, userID); err != nil {
		log.Printf("ERROR mark read: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.chatService.MarkConversationRead(r.Context(), userID, otherID); err != nil {
		log.Printf("ERROR mark conversation read: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var senderID *uuid.UUID
	if from := r.URL.Query().Get("from"); from != "" {
		id, err := uuid.Parse(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid sender ID")
			return
		}
		senderID = &id
	}

	count, err := h.chatService.UnreadCount(r.Context(), userID, senderID)
	if err != nil {
		log.Printf("ERROR unread count: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	previews, err := h.conversationService.ListWithPreviews(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list conversations: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, previews)
}
