package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNoData is returned by a WaveformSource when the requested range has no
// samples for the station.
var ErrNoData = errors.New("no waveform data")

// SampleWindow is one acquisition of filtered ground-motion samples for a
// station. It is never mutated after creation.
type SampleWindow struct {
	Station      string
	SamplingRate float64 // Hz
	Samples      []float64
	Start        time.Time // UTC timestamp of Samples[0]
}

// Duration returns the time covered by the samples.
func (w SampleWindow) Duration() time.Duration {
	if w.SamplingRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / w.SamplingRate * float64(time.Second))
}

// OffsetTime converts a time offset in seconds from window start to an absolute time.
func (w SampleWindow) OffsetTime(seconds float64) time.Time {
	return w.Start.Add(time.Duration(seconds * float64(time.Second)))
}

// samplesIn returns how many samples span d at the given rate.
func samplesIn(rate float64, d time.Duration) int {
	return int(math.Round(rate * d.Seconds()))
}

// WaveformRequest identifies the stream and time range to acquire.
type WaveformRequest struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	Duration time.Duration
}

// WaveformSource acquires filtered sample windows from an upstream archive.
type WaveformSource interface {
	FetchWindow(ctx context.Context, req WaveformRequest) (SampleWindow, error)
}
