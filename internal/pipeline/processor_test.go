package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/zeohealth/zeo-server/internal/jobs"
	"github.com/zeohealth/zeo-server/internal/notify"
	"github.com/zeohealth/zeo-server/internal/types"
)

type fakeTranscriber struct {
	text string
	err  error
	boom bool
}

func (f *fakeTranscriber) TranscribeAudio(audioPath string) (string, error) {
	if f.boom {
		panic("transcriber exploded")
	}
	return f.text, f.err
}

type fakeAnalyzer struct {
	analysis *types.Analysis
	err      error
}

func (f *fakeAnalyzer) AnalyzeTranscription(text string) (*types.Analysis, error) {
	return f.analysis, f.err
}

func drain(sub *notify.Subscriber) []types.ProgressEvent {
	var events []types.ProgressEvent
	for {
		select {
		case ev := <-sub.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

// TestProcessSuccess walks the full pipeline and checks checkpoints.
func TestProcessSuccess(t *testing.T) {
	registry := jobs.NewRegistry()
	hub := notify.NewHub()
	sub := hub.Subscribe()

	analysis := &types.Analysis{Summary: "resumo", Keywords: []string{"dor"}}
	p := NewProcessor(registry, hub,
		&fakeTranscriber{text: "texto transcrito"},
		&fakeAnalyzer{analysis: analysis})

	job := registry.Create("consulta.wav")
	p.Process(job.ID, "audio.wav")

	final, err := registry.Get(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != types.StatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
	if final.Progress != 100 {
		t.Fatalf("progress = %d, want 100", final.Progress)
	}
	if final.Transcription != "texto transcrito" {
		t.Fatalf("transcription = %q", final.Transcription)
	}
	if final.Analysis == nil || final.Analysis.Summary != "resumo" {
		t.Fatalf("analysis = %+v", final.Analysis)
	}

	events := drain(sub)
	if len(events) != 4 {
		t.Fatalf("broadcast count = %d, want 4", len(events))
	}
	last := -1
	for i, ev := range events {
		if ev.JobID != job.ID {
			t.Fatalf("event %d carries job %s", i, ev.JobID)
		}
		if ev.Progress <= last {
			t.Fatalf("progress not increasing: %d after %d", ev.Progress, last)
		}
		last = ev.Progress
	}
	if events[len(events)-1].Status != types.StatusCompleted {
		t.Fatalf("final event status = %s", events[len(events)-1].Status)
	}
}

// TestProcessTranscriptionFailureDegrades verifies the fallback-over-
// failure policy: an unreachable backend still yields a completed job.
func TestProcessTranscriptionFailureDegrades(t *testing.T) {
	registry := jobs.NewRegistry()
	hub := notify.NewHub()

	p := NewProcessor(registry, hub,
		&fakeTranscriber{err: errors.New("connection refused")},
		&fakeAnalyzer{})

	job := registry.Create("consulta.wav")
	p.Process(job.ID, "audio.wav")

	final, err := registry.Get(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != types.StatusCompleted {
		t.Fatalf("status = %s, want completed (degraded)", final.Status)
	}
	if final.Progress != 100 {
		t.Fatalf("progress = %d, want 100", final.Progress)
	}
	if final.Transcription != FallbackTranscription {
		t.Fatalf("transcription = %q, want fallback", final.Transcription)
	}
	if final.Error != "" {
		t.Fatalf("error = %q, degraded success must not set error", final.Error)
	}
}

// TestProcessAnalysisFailureDegrades checks the analyze-phase fallback.
func TestProcessAnalysisFailureDegrades(t *testing.T) {
	registry := jobs.NewRegistry()
	hub := notify.NewHub()

	p := NewProcessor(registry, hub,
		&fakeTranscriber{text: "texto"},
		&fakeAnalyzer{err: errors.New("model unavailable")})

	job := registry.Create("consulta.wav")
	p.Process(job.ID, "audio.wav")

	final, _ := registry.Get(job.ID)
	if final.Status != types.StatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
	if final.Transcription != "texto" {
		t.Fatalf("transcription = %q, real transcription must be kept", final.Transcription)
	}
	if final.Analysis == nil || final.Analysis.Summary == "" {
		t.Fatalf("analysis = %+v, want fallback analysis", final.Analysis)
	}
}

// TestProcessPanicMarksError verifies the unrecoverable path.
func TestProcessPanicMarksError(t *testing.T) {
	registry := jobs.NewRegistry()
	hub := notify.NewHub()
	sub := hub.Subscribe()

	p := NewProcessor(registry, hub, &fakeTranscriber{boom: true}, &fakeAnalyzer{})

	job := registry.Create("consulta.wav")
	p.Process(job.ID, "audio.wav")

	final, _ := registry.Get(job.ID)
	if final.Status != types.StatusError {
		t.Fatalf("status = %s, want error", final.Status)
	}
	if final.Error == "" {
		t.Fatal("expected error message on job")
	}

	events := drain(sub)
	if len(events) == 0 || events[len(events)-1].Status != types.StatusError {
		t.Fatalf("last broadcast = %+v, want error status", events)
	}
}

// TestProcessConcurrentJobsIsolated runs two jobs in parallel and
// checks no event crosses job ids.
func TestProcessConcurrentJobsIsolated(t *testing.T) {
	registry := jobs.NewRegistry()
	hub := notify.NewHub()
	sub := hub.Subscribe()

	pa := NewProcessor(registry, hub, &fakeTranscriber{text: "texto A"}, &fakeAnalyzer{analysis: &types.Analysis{Summary: "a"}})
	pb := NewProcessor(registry, hub, &fakeTranscriber{err: errors.New("down")}, &fakeAnalyzer{})

	jobA := registry.Create("a.wav")
	jobB := registry.Create("b.wav")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); pa.Process(jobA.ID, "a.wav") }()
	go func() { defer wg.Done(); pb.Process(jobB.ID, "b.wav") }()
	wg.Wait()

	finalA, _ := registry.Get(jobA.ID)
	finalB, _ := registry.Get(jobB.ID)
	if finalA.Transcription != "texto A" {
		t.Fatalf("job A transcription = %q", finalA.Transcription)
	}
	if finalB.Transcription != FallbackTranscription {
		t.Fatalf("job B transcription = %q, want fallback", finalB.Transcription)
	}

	lastByJob := map[string]int{jobA.ID: -1, jobB.ID: -1}
	for _, ev := range drain(sub) {
		last, ok := lastByJob[ev.JobID]
		if !ok {
			t.Fatalf("event for unknown job %s", ev.JobID)
		}
		if ev.Progress <= last {
			t.Fatalf("job %s progress regressed: %d after %d", ev.JobID, ev.Progress, last)
		}
		lastByJob[ev.JobID] = ev.Progress
	}
}
