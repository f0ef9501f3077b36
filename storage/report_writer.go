package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imovel-importer/models"
)

// ReportWriter appends one CSV row per import error so operators can hand
// the reject list back to the feed vendor. It is safe for concurrent use.
type ReportWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewReportWriter creates (or truncates) the report file at the given path
// and writes the header row. Intermediate directories are created
// automatically.
func NewReportWriter(path string) (*ReportWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "user_id", "total", "imported", "duplicates", "error"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: write header: %w", err)
	}
	w.Flush()

	return &ReportWriter{file: f, writer: w}, nil
}

// WriteResult writes one row per error in the import result.
func (r *ReportWriter) WriteResult(userID string, result *models.ImportResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	for _, msg := range result.Errors {
		row := []string{
			now,
			userID,
			fmt.Sprintf("%d", result.Total),
			fmt.Sprintf("%d", result.Imported),
			fmt.Sprintf("%d", result.Duplicates),
			msg,
		}
		if err := r.writer.Write(row); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}

	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the underlying file.
func (r *ReportWriter) Close() error {
	r.writer.Flush()
	return r.file.Close()
}
