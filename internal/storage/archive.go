package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zeohealth/zeo-server/internal/types"
)

// TranscriptRecord is one archived transcript's metadata row.
type TranscriptRecord struct {
	JobID       string    `json:"job_id"`
	RequestName string    `json:"request_name"`
	Summary     string    `json:"summary"`
	DriveURL    string    `json:"drive_url,omitempty"`
	LocalPath   string    `json:"local_path"`
	WordCount   int       `json:"word_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArchiveDB persists completed transcript metadata in SQLite. The job
// registry stays in-memory; the archive survives restarts.
type ArchiveDB struct {
	db *sql.DB
}

// NewArchiveDB opens (and if needed initializes) the archive database.
func NewArchiveDB(dbPath string) (*ArchiveDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		summary TEXT,
		drive_url TEXT,
		local_path TEXT NOT NULL,
		word_count INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &ArchiveDB{db: db}, nil
}

// SaveTranscript records a completed job's transcript metadata.
func (a *ArchiveDB) SaveTranscript(job types.Job, requestName, driveURL, localPath string) error {
	summary := ""
	if job.Analysis != nil {
		summary = job.Analysis.Summary
	}

	query := `
	INSERT INTO transcripts (job_id, request_name, summary, drive_url, local_path, word_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := a.db.Exec(query, job.ID, requestName, summary, driveURL, localPath,
		len(strings.Fields(job.Transcription)), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %v", err)
	}

	return nil
}

// GetTranscript retrieves archived metadata by job ID.
func (a *ArchiveDB) GetTranscript(jobID string) (TranscriptRecord, error) {
	query := `
	SELECT job_id, request_name, summary, drive_url, local_path, word_count, created_at
	FROM transcripts WHERE job_id = ?
	`

	var rec TranscriptRecord
	err := a.db.QueryRow(query, jobID).Scan(
		&rec.JobID, &rec.RequestName, &rec.Summary, &rec.DriveURL,
		&rec.LocalPath, &rec.WordCount, &rec.CreatedAt)
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("failed to get transcript: %v", err)
	}

	return rec, nil
}

// ListTranscripts returns the most recent transcripts, newest first.
func (a *ArchiveDB) ListTranscripts(limit int) ([]TranscriptRecord, error) {
	query := `
	SELECT job_id, request_name, summary, drive_url, local_path, word_count, created_at
	FROM transcripts ORDER BY created_at DESC LIMIT ?
	`

	rows, err := a.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %v", err)
	}
	defer rows.Close()

	var records []TranscriptRecord
	for rows.Next() {
		var rec TranscriptRecord
		if err := rows.Scan(&rec.JobID, &rec.RequestName, &rec.Summary, &rec.DriveURL,
			&rec.LocalPath, &rec.WordCount, &rec.CreatedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (a *ArchiveDB) Close() error {
	return a.db.Close()
}
