package queue

import (
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/zeohealth/zeo-server/internal/jobs"
	"github.com/zeohealth/zeo-server/internal/pipeline"
	"github.com/zeohealth/zeo-server/internal/storage"
	"github.com/zeohealth/zeo-server/internal/types"
)

// Work is one enqueued processing request.
type Work struct {
	JobID       string
	RequestName string
	FilePath    string
}

// WorkerPool runs transcription jobs on a fixed set of workers. Each
// worker drives the pipeline, then archives the completed transcript.
type WorkerPool struct {
	queue       chan Work
	workerCount int
	processor   *pipeline.Processor
	registry    *jobs.Registry
	local       *storage.LocalStore
	drive       *storage.DriveClient
	archive     *storage.ArchiveDB
}

// NewWorkerPool creates a pool. drive and archive may be nil when the
// corresponding export target is not configured.
func NewWorkerPool(
	workerCount int,
	processor *pipeline.Processor,
	registry *jobs.Registry,
	local *storage.LocalStore,
	drive *storage.DriveClient,
	archive *storage.ArchiveDB,
) *WorkerPool {
	return &WorkerPool{
		queue:       make(chan Work, 100),
		workerCount: workerCount,
		processor:   processor,
		registry:    registry,
		local:       local,
		drive:       drive,
		archive:     archive,
	}
}

// Start launches all workers.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Enqueue adds a work item to the queue.
func (wp *WorkerPool) Enqueue(w Work) {
	wp.queue <- w
	log.Printf("Job %s enqueued (name: %s)", w.JobID, w.RequestName)
}

func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for w := range wp.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, w.JobID, r, string(debug.Stack()))
				}
			}()

			wp.processWork(id, w)
		}()
	}
}

// processWork runs one job end to end. The pipeline owns the job's
// state transitions; the worker only archives the outcome.
func (wp *WorkerPool) processWork(workerID int, w Work) {
	log.Printf("Worker %d: Processing job %s", workerID, w.JobID)

	wp.processor.Process(w.JobID, w.FilePath)
	defer wp.cleanupTempFile(w.FilePath)

	job, err := wp.registry.Get(w.JobID)
	if err != nil {
		log.Printf("Worker %d: Job %s vanished after processing: %v", workerID, w.JobID, err)
		return
	}
	if job.Status != types.StatusCompleted {
		log.Printf("Worker %d: Job %s finished with status %s", workerID, w.JobID, job.Status)
		return
	}

	wp.archiveJob(workerID, w.RequestName, job)
}

// archiveJob exports a completed transcript: local file always, Drive
// and SQLite when configured. Export failures never fail the job.
func (wp *WorkerPool) archiveJob(workerID int, requestName string, job types.Job) {
	localPath, err := wp.local.SaveTranscript(requestName, job)
	if err != nil {
		log.Printf("Worker %d: Local save failed for job %s: %v", workerID, job.ID, err)
		return
	}

	var driveURL string
	if wp.drive != nil {
		for attempt := 1; attempt <= 3; attempt++ {
			driveURL, err = wp.drive.Upload(requestName, job)
			if err == nil {
				break
			}
			log.Printf("Worker %d: Drive upload attempt %d/3 failed: %v", workerID, attempt, err)
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second)
			}
		}
		if err != nil {
			log.Printf("Worker %d: WARNING - Drive upload failed after 3 attempts, keeping local copy only", workerID)
		}
	}

	if wp.archive != nil {
		if err := wp.archive.SaveTranscript(job, requestName, driveURL, localPath); err != nil {
			log.Printf("Worker %d: Archive save failed for job %s: %v", workerID, job.ID, err)
		}
	}

	log.Printf("Worker %d: Job %s completed (local: %s, drive: %s)",
		workerID, job.ID, localPath, driveURL)
}

func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}
