package storage

import (
	"os"
	"strings"
	"testing"
)

// TestLocalStoreSaveTranscript checks file layout and content.
func TestLocalStoreSaveTranscript(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStore(dir)

	job := completedJob("job-1")
	path, err := ls.SaveTranscript("consulta maria", job)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(content) != job.Transcription {
		t.Fatalf("content = %q", content)
	}

	metaPath := strings.TrimSuffix(path, ".txt") + "_meta.json"
	meta, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if !strings.Contains(string(meta), `"job_id": "job-1"`) {
		t.Fatalf("metadata missing job id: %s", meta)
	}
	if !strings.Contains(string(meta), "Dor abdominal") {
		t.Fatalf("metadata missing summary: %s", meta)
	}
}

// TestSanitizeFilename verifies path separators and length handling.
func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("../../etc/passwd"); got != "passwd" {
		t.Fatalf("sanitized = %q", got)
	}
	if got := sanitizeFilename("a:b*c"); got != "a_b_c" {
		t.Fatalf("sanitized = %q", got)
	}
	long := strings.Repeat("x", 200)
	if got := sanitizeFilename(long); len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
}
