package domain

import "time"

const (
	// PickSearchWindow bounds how far past the trigger offset the picker looks.
	PickSearchWindow = 10 * time.Second
	// ShortTermWindow is the STA length.
	ShortTermWindow = 500 * time.Millisecond
	// LongTermWindow is the LTA length; shorter search windows yield no pick.
	LongTermWindow = 5 * time.Second

	ratioEpsilon = 1e-10
)

// Picker locates the onset of the first energetic phase with an STA/LTA ratio.
type Picker struct {
	Threshold float64
}

// NewPicker returns a picker that fires when STA/LTA exceeds threshold.
func NewPicker(threshold float64) Picker {
	return Picker{Threshold: threshold}
}

// Pick returns the onset time in seconds from the start of w, searching from
// triggerOffset. The earliest exceedance wins. ok is false when the search
// window is shorter than LongTermWindow or no ratio exceeds the threshold.
func (p Picker) Pick(w SampleWindow, triggerOffset int) (seconds float64, ok bool) {
	if w.SamplingRate <= 0 {
		return 0, false
	}
	if triggerOffset < 0 {
		triggerOffset = 0
	}
	end := min(triggerOffset+samplesIn(w.SamplingRate, PickSearchWindow), len(w.Samples))
	if end-triggerOffset <= 0 {
		return 0, false
	}

	sta := max(samplesIn(w.SamplingRate, ShortTermWindow), 1)
	lta := max(samplesIn(w.SamplingRate, LongTermWindow), 1)
	segment := w.Samples[triggerOffset:end]
	if len(segment) < lta {
		return 0, false
	}

	energy := make([]float64, len(segment))
	for i, v := range segment {
		energy[i] = v * v
	}
	short := centeredMovingAverage(energy, sta)
	long := centeredMovingAverage(energy, lta)

	for i := range energy {
		if short[i]/(long[i]+ratioEpsilon) > p.Threshold {
			return float64(triggerOffset+i) / w.SamplingRate, true
		}
	}
	return 0, false
}

// centeredMovingAverage averages x over a window of n samples centered on each
// index, treating samples outside x as zero. The output has the length of x.
func centeredMovingAverage(x []float64, n int) []float64 {
	prefix := make([]float64, len(x)+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v
	}
	half := (n - 1) / 2
	out := make([]float64, len(x))
	for i := range x {
		hi := min(i+half, len(x)-1)
		lo := max(i+half-n+1, 0)
		out[i] = (prefix[hi+1] - prefix[lo]) / float64(n)
	}
	return out
}
