package operations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const RecordFilename = "backup_meta.json"

// Metadata records one backup run. It is written into the backup
// directory next to the server's own recovery metadata, as an
// operator-facing summary of what produced the backup.
type Metadata struct {
	Label           string    `json:"label"`
	Status          string    `json:"status"`
	StopLSN         string    `json:"stop_lsn,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Encode renders the record as indented JSON.
func (m *Metadata) Encode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return nil, fmt.Errorf("encode run record: %w", err)
	}
	return buf.Bytes(), nil
}
