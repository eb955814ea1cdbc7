package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultMarkerPath is where the success marker is written unless configured
// otherwise.
const DefaultMarkerPath = "INSTANCE_CREATED"

// MarkerRecord is the creation metadata persisted on success. Its presence on
// disk is the idempotency gate: future invocations skip all attempts.
type MarkerRecord struct {
	InstanceID  string    `json:"instance_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	RunID       string    `json:"run_id"`
}

// Marker is the durable write-once success flag.
type Marker struct {
	Path string
}

// NewMarker returns a marker at path, falling back to DefaultMarkerPath.
func NewMarker(path string) *Marker {
	if path == "" {
		path = DefaultMarkerPath
	}
	return &Marker{Path: path}
}

// Exists reports whether the marker has been written by a previous run.
func (m *Marker) Exists() bool {
	_, err := os.Stat(m.Path)
	return err == nil
}

// Read loads the persisted record.
func (m *Marker) Read() (*MarkerRecord, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, fmt.Errorf("reading marker %s: %w", m.Path, err)
	}
	var rec MarkerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing marker %s: %w", m.Path, err)
	}
	return &rec, nil
}

// Write persists the record atomically (temp file + rename). The marker is
// write-once: if it already exists, Write is a no-op and the original record
// is preserved.
func (m *Marker) Write(rec MarkerRecord) error {
	if m.Exists() {
		return nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding marker record: %w", err)
	}

	dir := filepath.Dir(m.Path)
	tmp, err := os.CreateTemp(dir, ".marker-*")
	if err != nil {
		return fmt.Errorf("creating temp marker: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp marker: %w", err)
	}

	if err := os.Rename(tmp.Name(), m.Path); err != nil {
		return fmt.Errorf("renaming marker into place: %w", err)
	}
	return nil
}
