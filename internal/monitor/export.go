package monitor

import (
	"encoding/csv"
	"fmt"
	"os"
)

// ExportOptions configures how the log is written to CSV.
type ExportOptions struct {
	FilePath          string
	IncludeTimestamps bool
}

// ExportLog writes entries to a CSV file, one row per entry.
func ExportLog(entries []LogEntry, opts ExportOptions) error {
	f, err := os.Create(opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"Message"}
	if opts.IncludeTimestamps {
		header = []string{"Timestamp", "Message"}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, entry := range entries {
		record := []string{entry.Message}
		if opts.IncludeTimestamps {
			record = []string{entry.Time.Format(timestampLayout), entry.Message}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv writer: %w", err)
	}
	return f.Close()
}
