package types

import "time"

// Job status constants
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Analysis holds clinical insights extracted from a transcription.
type Analysis struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Job tracks one submitted audio artifact through its processing lifecycle.
type Job struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename,omitempty"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	Transcription string     `json:"transcription,omitempty"`
	Analysis      *Analysis  `json:"analysis,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether the job reached a final state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

// ProgressEvent is the flat wire message pushed to real-time subscribers.
type ProgressEvent struct {
	Type          string    `json:"type"`
	JobID         string    `json:"jobId"`
	Progress      int       `json:"progress"`
	Status        string    `json:"status"`
	Transcription string    `json:"transcription,omitempty"`
	Analysis      *Analysis `json:"analysis,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// NewProgressEvent flattens a job snapshot into a broadcast message.
func NewProgressEvent(job Job) ProgressEvent {
	return ProgressEvent{
		Type:          "progress",
		JobID:         job.ID,
		Progress:      job.Progress,
		Status:        job.Status,
		Transcription: job.Transcription,
		Analysis:      job.Analysis,
		Error:         job.Error,
	}
}
