package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/zeohealth/zeo-server/internal/chat"
)

// ChatHandler delegates chat messages to the xAI completion API.
type ChatHandler struct {
	client *chat.XAIClient
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(client *chat.XAIClient) *ChatHandler {
	return &ChatHandler{
		client: client,
	}
}

type chatRequest struct {
	Message string        `json:"message"`
	Context *chat.Context `json:"context"`
}

// Handle forwards the message and returns the assistant's reply.
// Upstream failures are reported as {success:false, error} so the UI
// can show a retryable message.
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	response, err := h.client.Complete(c.Context(), req.Message, req.Context)
	if err != nil {
		if !errors.Is(err, chat.ErrNotConfigured) {
			log.Printf("Chat completion failed: %v", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"response":  response,
		"model":     h.client.Model(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
