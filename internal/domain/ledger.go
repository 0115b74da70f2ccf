package domain

import (
	"math"
	"time"
)

// Ledger accumulates amplitude statistics between aggregation flushes.
type Ledger struct {
	Start      time.Time
	Count      int
	Sum        float64
	SumSquares float64
	Min        float64
	Max        float64
	Windows    int
}

// Reset clears the ledger and starts a new accounting period at start.
func (l *Ledger) Reset(start time.Time) {
	*l = Ledger{Start: start}
}

// Add folds samples into the running statistics.
func (l *Ledger) Add(samples []float64) {
	if len(samples) == 0 {
		return
	}
	if l.Count == 0 {
		l.Min = samples[0]
		l.Max = samples[0]
	}
	for _, v := range samples {
		l.Sum += v
		l.SumSquares += v * v
		l.Min = math.Min(l.Min, v)
		l.Max = math.Max(l.Max, v)
	}
	l.Count += len(samples)
	l.Windows++
}

// Stats returns the mean and standard deviation of the accumulated samples.
// Variance is clamped at zero before the square root.
func (l Ledger) Stats() (mean, stdDev float64) {
	if l.Count == 0 {
		return 0, 0
	}
	n := float64(l.Count)
	mean = l.Sum / n
	variance := math.Max(l.SumSquares/n-mean*mean, 0)
	return mean, math.Sqrt(variance)
}

// Aggregate builds the record for a flush ending at end.
func (l Ledger) Aggregate(id, station string, samplingRate float64, end time.Time) AggregateRecord {
	mean, std := l.Stats()
	return AggregateRecord{
		ID:              id,
		Station:         station,
		Start:           l.Start,
		End:             end,
		DurationSeconds: end.Sub(l.Start).Seconds(),
		SampleCount:     l.Count,
		Windows:         l.Windows,
		SamplingRate:    samplingRate,
		Min:             l.Min,
		Max:             l.Max,
		Mean:            mean,
		StdDev:          std,
	}
}
