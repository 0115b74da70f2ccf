package domain

import (
	"math"
	"time"
)

// DetectionWindow is the trailing span of a window the detector evaluates.
const DetectionWindow = 5 * time.Second

// EventClass is the detector's classification of a window.
type EventClass int

const (
	ClassNone EventClass = iota
	ClassWeak
	ClassStrong
)

func (c EventClass) String() string {
	switch c {
	case ClassWeak:
		return "weak"
	case ClassStrong:
		return "strong"
	default:
		return "none"
	}
}

// DetectionOutcome is the detector's verdict for one station and cycle.
// WindowStart and WindowEnd bound the evaluated samples as [start, end).
type DetectionOutcome struct {
	Class       EventClass
	RMS         float64
	Peak        float64
	WindowStart int
	WindowEnd   int
}

// Detected reports whether the outcome is weak or strong.
func (o DetectionOutcome) Detected() bool {
	return o.Class != ClassNone
}

// Detector classifies the trailing window of a series by RMS amplitude.
type Detector struct {
	StrongThreshold float64
	WeakFraction    float64
}

// NewDetector returns a detector with the given strong RMS threshold and weak fraction.
func NewDetector(strongThreshold, weakFraction float64) Detector {
	return Detector{StrongThreshold: strongThreshold, WeakFraction: weakFraction}
}

// Detect classifies the trailing DetectionWindow of w.
func (d Detector) Detect(w SampleWindow) DetectionOutcome {
	n := samplesIn(w.SamplingRate, DetectionWindow)
	if n <= 0 || len(w.Samples) < n {
		return DetectionOutcome{Class: ClassNone}
	}

	start := len(w.Samples) - n
	var sumSq, peak float64
	for _, v := range w.Samples[start:] {
		sumSq += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := math.Sqrt(sumSq / float64(n))

	out := DetectionOutcome{
		RMS:         rms,
		Peak:        peak,
		WindowStart: start,
		WindowEnd:   len(w.Samples),
	}
	switch {
	case rms >= d.StrongThreshold:
		out.Class = ClassStrong
	case rms >= d.WeakFraction*d.StrongThreshold:
		out.Class = ClassWeak
	default:
		out.Class = ClassNone
	}
	return out
}
