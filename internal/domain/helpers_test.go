package domain

import "time"

const testRate = 100.0

var testStart = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// constantWindow returns n samples of value v at testRate.
func constantWindow(n int, v float64) SampleWindow {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = v
	}
	return SampleWindow{Station: "TRIV", SamplingRate: testRate, Samples: samples, Start: testStart}
}

// onsetWindow returns n samples that are zero before onset and alternate ±amp after it.
func onsetWindow(n, onset int, amp float64) SampleWindow {
	samples := make([]float64, n)
	for i := onset; i < n; i++ {
		if i%2 == 0 {
			samples[i] = amp
		} else {
			samples[i] = -amp
		}
	}
	return SampleWindow{Station: "TRIV", SamplingRate: testRate, Samples: samples, Start: testStart}
}
