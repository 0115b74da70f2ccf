package domain

import (
	"fmt"
	"time"
)

// RecordType names the document collections in the persistent store.
type RecordType string

const (
	RecordSeismicEvent  RecordType = "seismic_event"
	RecordAggregateData RecordType = "aggregated_data"
	RecordTriangulation RecordType = "triangulation_result"
)

// EventKind distinguishes raw event captures from post-event metadata.
type EventKind string

const (
	EventTriggered EventKind = "event_triggered"
	EventPost      EventKind = "post_event"
)

// EventRecord is a seismic_event document. Triggered records reference the
// compressed sample blob; post-event records carry metadata only.
type EventRecord struct {
	ID                string    `json:"id"`
	Kind              EventKind `json:"event_type"`
	Station           string    `json:"station"`
	Timestamp         time.Time `json:"timestamp"`
	SamplingRate      float64   `json:"sampling_rate"`
	DurationSeconds   float64   `json:"duration"`
	PeakAmplitude     float64   `json:"max_amplitude"`
	RMS               float64   `json:"rms"`
	SecondsSinceEvent float64   `json:"seconds_since_event,omitempty"`
	BlobID            string    `json:"blob_id,omitempty"`
	BlobSize          int       `json:"blob_size,omitempty"`
	Filename          string    `json:"filename,omitempty"`
}

// AggregateRecord summarizes a quiet period for one station.
type AggregateRecord struct {
	ID              string    `json:"id"`
	Station         string    `json:"station"`
	Start           time.Time `json:"start_time"`
	End             time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	SampleCount     int       `json:"num_samples"`
	Windows         int       `json:"num_windows"`
	SamplingRate    float64   `json:"sampling_rate"`
	Min             float64   `json:"min_amplitude"`
	Max             float64   `json:"max_amplitude"`
	Mean            float64   `json:"mean_amplitude"`
	StdDev          float64   `json:"std_amplitude"`
}

// TriangulationRecord is the authoritative persisted copy of an estimate.
type TriangulationRecord struct {
	ID string `json:"id"`
	EpicenterEstimate
}

// EventFilename names the raw capture for a station at t.
func EventFilename(station string, t time.Time) string {
	return fmt.Sprintf("%s_event_%s.bin", station, t.UTC().Format("20060102_150405"))
}
