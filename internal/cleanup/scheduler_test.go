package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zeohealth/zeo-server/internal/jobs"
	"github.com/zeohealth/zeo-server/internal/types"
)

// TestSweepEvictsTerminalJobs verifies registry eviction honors the
// terminal-only rule: a max age of zero makes a just-completed job
// evictable while an in-flight one stays.
func TestSweepEvictsTerminalJobs(t *testing.T) {
	registry := jobs.NewRegistry()

	done := registry.Create("old.wav")
	progress := 100
	status := types.StatusCompleted
	if _, err := registry.Update(done.ID, jobs.Patch{Progress: &progress, Status: &status}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	active := registry.Create("active.wav")

	s := NewScheduler(registry, t.TempDir(), 1, 0)
	s.sweep()

	if _, err := registry.Get(done.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("terminal job not evicted: %v", err)
	}
	if _, err := registry.Get(active.ID); err != nil {
		t.Fatalf("active job evicted: %v", err)
	}
}

// TestSweepDeletesStaleUploads verifies old upload files are removed
// and recent ones kept.
func TestSweepDeletesStaleUploads(t *testing.T) {
	uploadDir := t.TempDir()

	stale := filepath.Join(uploadDir, "stale.wav")
	if err := os.WriteFile(stale, []byte("data"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	fresh := filepath.Join(uploadDir, "fresh.wav")
	if err := os.WriteFile(fresh, []byte("data"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewScheduler(jobs.NewRegistry(), uploadDir, 1, 60)
	s.sweep()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale upload file not deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh upload file deleted: %v", err)
	}
}
