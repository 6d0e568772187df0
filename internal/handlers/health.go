package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/zeohealth/zeo-server/internal/chat"
	"github.com/zeohealth/zeo-server/internal/mcp"
)

// HealthHandler reports liveness and adapter connectivity.
type HealthHandler struct {
	mcpClient *mcp.Client
	xai       *chat.XAIClient
	env       string
	version   string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(mcpClient *mcp.Client, xai *chat.XAIClient, env, version string) *HealthHandler {
	return &HealthHandler{
		mcpClient: mcpClient,
		xai:       xai,
		env:       env,
		version:   version,
	}
}

// Handle returns the liveness payload. No side effects.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":            "healthy",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"version":           h.version,
		"environment":       h.env,
		"mcp_connected":     h.mcpClient.Connected(),
		"connected_servers": h.mcpClient.ConnectedServers(),
		"xai": fiber.Map{
			"configured": h.xai.Configured(),
		},
	})
}

// HandleServers returns the MCP fleet connection snapshot.
func (h *HealthHandler) HandleServers(c *fiber.Ctx) error {
	status := "disconnected"
	if h.mcpClient.Connected() {
		status = "connected"
	}
	return c.JSON(fiber.Map{
		"connected":    h.mcpClient.ConnectedServers(),
		"status":       status,
		"serverStatus": h.mcpClient.ServerStatus(),
	})
}
