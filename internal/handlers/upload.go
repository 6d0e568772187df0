package handlers

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/zeohealth/zeo-server/internal/jobs"
	"github.com/zeohealth/zeo-server/internal/pipeline"
	"github.com/zeohealth/zeo-server/internal/queue"
)

// UploadHandler accepts audio submissions and starts processing.
type UploadHandler struct {
	registry   *jobs.Registry
	workerPool *queue.WorkerPool
	uploadDir  string
	maxSizeMB  int
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(registry *jobs.Registry, workerPool *queue.WorkerPool, uploadDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		registry:   registry,
		workerPool: workerPool,
		uploadDir:  uploadDir,
		maxSizeMB:  maxSizeMB,
	}
}

// Handle processes the upload request. Validation failures return
// before any job is created.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No audio file provided",
		})
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = file.Filename
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
		})
	}

	if !pipeline.ValidateAudioFormat(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported audio format",
		})
	}

	job := h.registry.Create(file.Filename)

	tempPath := filepath.Join(h.uploadDir, job.ID+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, tempPath); err != nil {
		log.Printf("Failed to save uploaded file for job %s: %v", job.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
		})
	}

	h.workerPool.Enqueue(queue.Work{
		JobID:       job.ID,
		RequestName: requestName,
		FilePath:    tempPath,
	})

	return c.JSON(fiber.Map{
		"jobId":  job.ID,
		"status": "uploaded",
	})
}
