package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/zeohealth/zeo-server/internal/notify"
)

// WSHandler attaches WebSocket connections to the notification hub.
type WSHandler struct {
	hub *notify.Hub
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(hub *notify.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
	}
}

// Handle pumps broadcast events to one connection. The channel is the
// only ordering boundary: events reach the client in send order. The
// read loop exists solely to notice the peer going away.
func (h *WSHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}()

	for event := range sub.Events() {
		if err := c.WriteJSON(event); err != nil {
			log.Printf("WebSocket write failed, dropping subscriber: %v", err)
			return
		}
	}
}
