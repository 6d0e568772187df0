package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zeohealth/zeo-server/internal/jobs"
)

// StatusHandler serves point-in-time job snapshots for polling clients.
type StatusHandler struct {
	registry *jobs.Registry
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(registry *jobs.Registry) *StatusHandler {
	return &StatusHandler{
		registry: registry,
	}
}

// Handle returns the current job snapshot, or 404 for unknown ids.
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	job, err := h.registry.Get(c.Params("jobId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}
	return c.JSON(job)
}
