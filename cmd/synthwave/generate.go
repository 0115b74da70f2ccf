package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// signal shapes a synthetic arrival: a decaying sine on top of optional noise.
type signal struct {
	Rate      float64
	Amplitude float64
	Frequency float64
	Decay     time.Duration
	Noise     float64
	// Lead places the reference onset this long before the window end so it
	// falls inside the detector's trailing window.
	Lead time.Duration
}

func defaultSignal() signal {
	return signal{Rate: 100, Amplitude: 1, Frequency: 5, Decay: 4 * time.Second, Lead: 4 * time.Second}
}

// window renders span seconds starting at start with the arrival delayed by
// delay relative to the reference onset.
func (s signal) window(station string, start time.Time, span, delay time.Duration, rng *rand.Rand) domain.SampleWindow {
	n := int(math.Round(s.Rate * span.Seconds()))
	onset := (span - s.Lead + delay).Seconds()
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / s.Rate
		v := 0.0
		if s.Noise > 0 {
			v = rng.NormFloat64() * s.Noise
		}
		if t >= onset {
			dt := t - onset
			v += s.Amplitude * math.Exp(-dt/s.Decay.Seconds()) * math.Sin(2*math.Pi*s.Frequency*dt+math.Pi/2)
		}
		samples[i] = v
	}
	return domain.SampleWindow{Station: station, SamplingRate: s.Rate, Samples: samples, Start: start.UTC()}
}

// parseDelays reads "TRIV=0,SACR=0.5" into per-station arrival delays in seconds.
func parseDelays(s string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("delay %q: want STATION=SECONDS", part)
		}
		secs, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("delay %q: want a non-negative number of seconds", part)
		}
		out[strings.TrimSpace(id)] = time.Duration(secs * float64(time.Second))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no station delays given")
	}
	return out, nil
}

func sortedStations(delays map[string]time.Duration) []string {
	ids := make([]string, 0, len(delays))
	for id := range delays {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
