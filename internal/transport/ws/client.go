package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendTimeout  = 5 * time.Second
	sendBufSize  = 256
)

// Client represents a single WebSocket connection. It is the live-connection
// handle registered in the presence registry: pushes enqueue onto the
// buffered send channel and never block.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
}

// PushMessage queues a receive_message push. Returns false when the client
// buffer is full or the connection is shutting down.
func (c *Client) PushMessage(msg *domain.Message) bool {
	return c.pushEvent(EventTypeMessageReceive, MessagePayload{Message: *msg})
}

// PushRead queues a read receipt for a message this client sent.
func (c *Client) PushRead(msg *domain.Message) bool {
	return c.pushEvent(EventTypeMessageRead, MessagePayload{Message: *msg})
}

// Close tears the connection down. Safe to call more than once; the hub
// uses it both for normal cleanup and for closing a handle displaced by a
// newer session.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if reason == "" {
			c.conn.Close(websocket.StatusNormalClosure, "")
		} else {
			c.conn.Close(websocket.StatusPolicyViolation, reason)
		}
	})
}

// ReadPump reads events from the WebSocket until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Close("")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.userID)
			} else {
				log.Printf("ws: read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events to the WebSocket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close("")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.userID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeMessageSend:
		var p MessageSendPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid message.send payload", "")
			return
		}
		c.handleSend(&p)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type, "")
	}
}

// handleSend routes a live send through the delivery router and
// acknowledges the caller with the canonical persisted message.
func (c *Client) handleSend(p *MessageSendPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg, delivered, err := c.hub.chat.Send(ctx, c.userID, p.ReceiverID, p.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfMessage):
			c.sendError("SELF_MESSAGE", "cannot send a message to yourself", p.Nonce)
		case errors.Is(err, domain.ErrEmptyContent):
			c.sendError("EMPTY_CONTENT", "message content is required", p.Nonce)
		case errors.Is(err, domain.ErrContentTooLong):
			c.sendError("CONTENT_TOO_LONG", "message content exceeds the length limit", p.Nonce)
		case errors.Is(err, domain.ErrUserNotFound):
			c.sendError("NOT_FOUND", "receiver not found", p.Nonce)
		default:
			log.Printf("ws: send from %s failed: %v", c.userID, err)
			c.sendError("INTERNAL", "something went wrong", p.Nonce)
		}
		return
	}

	c.pushEvent(EventTypeMessageAck, MessageAckPayload{
		Message:   msg,
		Delivered: delivered,
		Nonce:     p.Nonce,
	})
}

func (c *Client) pushEvent(eventType string, payload any) bool {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return false
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong, Timestamp: time.Now().Unix()})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message, nonce string) {
	c.pushEvent(EventTypeError, ErrorPayload{Code: code, Message: message, Nonce: nonce})
}
