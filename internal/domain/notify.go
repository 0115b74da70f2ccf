package domain

import "time"

// EventNotice carries what a notifier needs to decide whether to alert on a
// raw event capture.
type EventNotice struct {
	Station     string        `json:"station"`
	StationName string        `json:"station_name"`
	Timestamp   time.Time     `json:"timestamp"`
	Peak        float64       `json:"max_amplitude"`
	RMS         float64       `json:"rms"`
	Duration    time.Duration `json:"duration"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
}

// NotifyPolicy filters event notices by size.
type NotifyPolicy struct {
	MinPeak     float64
	MinDuration time.Duration
}

// ShouldNotify reports whether n is large and long enough to alert on.
func (p NotifyPolicy) ShouldNotify(n EventNotice) bool {
	return n.Peak >= p.MinPeak && n.Duration >= p.MinDuration
}
