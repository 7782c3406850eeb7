package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/presence"
	"github.com/vedran77/relay/internal/repository"
	"github.com/vedran77/relay/internal/service"
)

// Hub owns the live-connection lifecycle: it keeps the presence registry in
// sync with connect/disconnect events, mirrors presence transitions into
// the user directory and fans presence changes out to the other clients.
// Message routing itself lives in the delivery router (service.ChatService),
// which reads the same registry.
type Hub struct {
	registry *presence.Registry
	users    repository.UserRepository
	chat     *service.ChatService

	// clients is the broadcast set, owned exclusively by the Run loop.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
}

func NewHub(registry *presence.Registry, users repository.UserRepository, chat *service.ChatService) *Hub {
	return &Hub{
		registry:   registry,
		users:      users,
		chat:       chat,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if prev := h.registry.Register(client.userID, client); prev != nil {
				// Single-handle-per-user policy: a newer session displaces
				// the old one, which gets closed instead of orphaned.
				if pc, ok := prev.(*Client); ok {
					delete(h.clients, pc)
				}
				prev.Close("replaced by a newer session")
				log.Printf("ws hub: user %s reconnected, displaced previous session", client.userID)
			}
			h.clients[client] = struct{}{}
			log.Printf("ws hub: user %s connected (%d online)", client.userID, h.registry.Count())

			go h.setOnline(client.userID, true)
			h.broadcastPresence(client.userID, "online", client)

		case client := <-h.unregister:
			delete(h.clients, client)
			// Identity-checked: a displaced handle's late disconnect does
			// not evict the replacement session.
			if userID, ok := h.registry.UnregisterHandle(client); ok {
				log.Printf("ws hub: user %s disconnected (%d online)", userID, h.registry.Count())
				go h.setOnline(userID, false)
				h.broadcastPresence(userID, "offline", client)
			}
			client.Close("")
		}
	}
}

// setOnline mirrors a presence transition into the durable user record.
// Best-effort: the registry, not the database, is the delivery authority.
func (h *Hub) setOnline(userID uuid.UUID, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.users.UpdateOnlineStatus(ctx, userID, online); err != nil {
		log.Printf("ws hub: updating online status for %s: %v", userID, err)
		return
	}
	if online {
		if err := h.users.UpdateLastSeen(ctx, userID); err != nil {
			log.Printf("ws hub: updating last seen for %s: %v", userID, err)
		}
	}
}

// broadcastPresence sends online/offline to all other connected clients.
func (h *Hub) broadcastPresence(userID uuid.UUID, status string, exclude *Client) {
	evt, err := NewEvent(EventTypePresence, PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	for client := range h.clients {
		if client == exclude || client.userID == userID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}
