package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/zeohealth/zeo-server/internal/jobs"
)

// Scheduler bounds the server's memory and disk footprint: terminal
// jobs are evicted from the registry and stale upload files are removed
// once they pass the configured age.
type Scheduler struct {
	registry        *jobs.Registry
	uploadDir       string
	intervalMinutes int
	maxAgeMinutes   int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler.
func NewScheduler(registry *jobs.Registry, uploadDir string, intervalMinutes, maxAgeMinutes int) *Scheduler {
	return &Scheduler{
		registry:        registry,
		uploadDir:       uploadDir,
		intervalMinutes: intervalMinutes,
		maxAgeMinutes:   maxAgeMinutes,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *Scheduler) Start() {
	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dm)",
		s.intervalMinutes, s.maxAgeMinutes)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// sweep runs one eviction pass.
func (s *Scheduler) sweep() {
	maxAge := time.Duration(s.maxAgeMinutes) * time.Minute
	cutoff := time.Now().Add(-maxAge)

	if evicted := s.registry.EvictTerminalBefore(cutoff); evicted > 0 {
		log.Printf("Evicted %d terminal jobs from registry", evicted)
	}

	s.cleanOldFiles(cutoff)
}

// cleanOldFiles removes upload files last modified before the cutoff.
// In-flight uploads are newer than any sane max age, so only abandoned
// files match.
func (s *Scheduler) cleanOldFiles(cutoff time.Time) {
	var deleted int

	err := filepath.Walk(s.uploadDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old file %s: %v", path, err)
			} else {
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error during upload dir cleanup: %v", err)
	}

	if deleted > 0 {
		log.Printf("Cleanup complete: %d stale upload files deleted", deleted)
	}
}

// EnsureDirExists creates the directory if it does not exist.
func EnsureDirExists(dir string) error {
	return os.MkdirAll(dir, 0755)
}
