package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeohealth/zeo-server/internal/types"
)

// LocalStore saves completed transcripts to the local filesystem.
type LocalStore struct {
	outputDir string
}

// NewLocalStore creates a store rooted at outputDir.
func NewLocalStore(outputDir string) *LocalStore {
	return &LocalStore{
		outputDir: outputDir,
	}
}

// SaveTranscript writes the transcript text and a metadata JSON file
// into a dated directory, returning the transcript path.
func (ls *LocalStore) SaveTranscript(requestName string, job types.Job) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(requestName))

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(job.Transcription), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %v", err)
	}

	metadata := map[string]interface{}{
		"job_id":       job.ID,
		"request_name": requestName,
		"word_count":   len(strings.Fields(job.Transcription)),
		"created_at":   job.CreatedAt,
		"completed_at": job.CompletedAt,
		"local_path":   txtPath,
	}
	if job.Analysis != nil {
		metadata["summary"] = job.Analysis.Summary
		metadata["keywords"] = job.Analysis.Keywords
	}

	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %v", err)
	}

	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %v", err)
	}

	return txtPath, nil
}

// sanitizeFilename strips path separators and bounds the length.
func sanitizeFilename(name string) string {
	result := filepath.Base(name)
	for _, ch := range []string{":", "*", "?", "\"", "<", ">", "|"} {
		result = strings.ReplaceAll(result, ch, "_")
	}
	if result == "." || result == string(filepath.Separator) || result == "" {
		result = "untitled"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
