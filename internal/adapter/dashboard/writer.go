// Package dashboard projects the latest epicenter estimate into the JSON file
// read by the station dashboard.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// Snapshot is the dashboard file content.
type Snapshot struct {
	Timestamp       time.Time          `json:"timestamp"`
	Latitude        float64            `json:"lat"`
	Longitude       float64            `json:"lon"`
	Stations        []string           `json:"stations"`
	TimeDifferences map[string]float64 `json:"time_diffs"`
	PlaceName       string             `json:"place_name,omitempty"`
}

// FromEstimate builds the snapshot for est.
func FromEstimate(est domain.EpicenterEstimate) Snapshot {
	return Snapshot{
		Timestamp:       est.Timestamp.UTC(),
		Latitude:        est.Latitude,
		Longitude:       est.Longitude,
		Stations:        est.Stations,
		TimeDifferences: est.TimeDifferences,
		PlaceName:       est.PlaceName,
	}
}

// Writer replaces the dashboard file atomically, keyed by estimate timestamp.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer for path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Write stores est unless the file already holds an estimate with the same
// timestamp. It reports whether the file changed.
func (w *Writer) Write(est domain.EpicenterEstimate) (bool, error) {
	snap := FromEstimate(est)

	prev, err := Read(w.path)
	switch {
	case err == nil && prev.Timestamp.Equal(snap.Timestamp):
		w.logger.Debug("dashboard unchanged", "timestamp", snap.Timestamp)
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		// An unreadable file is replaced.
		w.logger.Warn("dashboard file unreadable, replacing", "path", w.path, "error", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode dashboard: %w", err)
	}
	if err := writeAtomic(w.path, data); err != nil {
		return false, err
	}
	w.logger.Info("dashboard updated", "path", w.path, "timestamp", snap.Timestamp, "stations", snap.Stations)
	return true, nil
}

// Read loads the snapshot at path.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode dashboard %s: %w", path, err)
	}
	return snap, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dashboard-*.json")
	if err != nil {
		return fmt.Errorf("create dashboard temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write dashboard temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dashboard temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod dashboard temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dashboard %s: %w", path, err)
	}
	return nil
}
