package client

import (
	"sync"

	"github.com/zeohealth/zeo-server/internal/types"
)

// View is the UI step the reconciler has resolved to.
type View int

const (
	ViewUpload View = iota
	ViewProcessing
	ViewResults
	ViewFailure
)

// State is a snapshot of the reconciler's local job view.
type State struct {
	JobID         string
	Progress      int
	Status        string
	Transcription string
	Analysis      *types.Analysis
	Error         string
	View          View
}

// Reconciler merges inbound progress events into local UI state. Events
// for other jobs are ignored; progress and status from the server are
// applied as-is, the client never second-guesses them.
type Reconciler struct {
	mu       sync.Mutex
	state    State
	done     chan struct{}
	doneOnce sync.Once
}

// NewReconciler tracks the given job, starting in the processing view.
func NewReconciler(jobID string) *Reconciler {
	return &Reconciler{
		state: State{
			JobID: jobID,
			View:  ViewProcessing,
		},
		done: make(chan struct{}),
	}
}

// Apply merges one progress event into the local state.
func (r *Reconciler) Apply(event types.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.JobID != r.state.JobID {
		return
	}

	r.state.Progress = event.Progress
	r.state.Status = event.Status
	if event.Transcription != "" {
		r.state.Transcription = event.Transcription
	}
	if event.Analysis != nil {
		r.state.Analysis = event.Analysis
	}
	if event.Error != "" {
		r.state.Error = event.Error
	}

	switch {
	case event.Status == types.StatusCompleted && r.state.Transcription != "":
		r.state.View = ViewResults
	case event.Status == types.StatusError:
		r.state.View = ViewFailure
	}

	if event.Status == types.StatusCompleted || event.Status == types.StatusError {
		r.doneOnce.Do(func() { close(r.done) })
	}
}

// ApplyJob merges a polled job snapshot, reusing the event path.
func (r *Reconciler) ApplyJob(job types.Job) {
	r.Apply(types.NewProgressEvent(job))
}

// State returns a copy of the current local state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// JobID returns the tracked job id.
func (r *Reconciler) JobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.JobID
}

// Done is closed once a terminal status has been observed. Poll
// transports use it to stop their loop.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}
