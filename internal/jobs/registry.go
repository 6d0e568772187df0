package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeohealth/zeo-server/internal/types"
)

// ErrNotFound is returned when a job id has no registry entry.
var ErrNotFound = errors.New("job not found")

// ErrTerminal is returned when updating a completed or errored job.
var ErrTerminal = errors.New("job already terminal")

// ErrProgressRegression is returned when an update would decrease progress.
var ErrProgressRegression = errors.New("progress may not decrease")

// Patch describes a partial job update. Nil fields are left untouched.
type Patch struct {
	Progress      *int
	Status        *string
	Transcription *string
	Analysis      *types.Analysis
	Error         *string
}

// Registry is the in-memory source of truth for job state. All reads
// return copies; callers never hold a pointer into the map.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*types.Job),
	}
}

// Create allocates a new job in processing state with zero progress.
func (r *Registry) Create(filename string) types.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &types.Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    types.StatusProcessing,
		Progress:  0,
		CreatedAt: time.Now(),
	}
	r.jobs[job.ID] = job
	return *job
}

// Get returns a snapshot of the job with the given id.
func (r *Registry) Get(id string) (types.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return types.Job{}, ErrNotFound
	}
	return *job, nil
}

// Update merges patch fields into the job and returns the new snapshot.
// Updates to terminal jobs and progress regressions are rejected: the
// pipeline owns transitions, so either indicates a programming error.
func (r *Registry) Update(id string, patch Patch) (types.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return types.Job{}, ErrNotFound
	}
	if job.Terminal() {
		return types.Job{}, fmt.Errorf("update job %s: %w", id, ErrTerminal)
	}

	if patch.Progress != nil {
		if *patch.Progress < job.Progress {
			return types.Job{}, fmt.Errorf("update job %s: %d -> %d: %w",
				id, job.Progress, *patch.Progress, ErrProgressRegression)
		}
		job.Progress = *patch.Progress
	}
	if patch.Transcription != nil {
		job.Transcription = *patch.Transcription
	}
	if patch.Analysis != nil {
		job.Analysis = patch.Analysis
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.Status != nil && *patch.Status != job.Status {
		job.Status = *patch.Status
		if job.Terminal() {
			now := time.Now()
			job.CompletedAt = &now
		}
	}

	return *job, nil
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// EvictTerminalBefore removes terminal jobs whose completion time is
// older than cutoff and returns how many were evicted.
func (r *Registry) EvictTerminalBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, job := range r.jobs {
		if job.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}
