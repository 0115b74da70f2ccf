package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// MinQuorum is the number of qualifying stations an estimate needs.
const MinQuorum = 3

const weightEpsilon = 0.01

// ErrInsufficientQuorum is returned when fewer than MinQuorum stations have
// both a detection and an arrival pick. It is a normal outcome, not a fault.
var ErrInsufficientQuorum = errors.New("insufficient station quorum")

// StationCycleResult is one station's contribution to a cycle.
type StationCycleResult struct {
	Station       string
	DataAvailable bool
	EventDetected bool
	Class         EventClass
	Pick          float64 // seconds from window start, valid when HasPick
	HasPick       bool
	Peak          float64
	RMS           float64
	EventTime     time.Time // window start + pick
	Latitude      float64
	Longitude     float64
}

// Qualifies reports whether the result can take part in an estimate.
func (r StationCycleResult) Qualifies() bool {
	return r.EventDetected && r.HasPick
}

// EpicenterEstimate is the weighted-centroid location produced for a cycle.
type EpicenterEstimate struct {
	Timestamp          time.Time          `json:"timestamp"`
	Latitude           float64            `json:"latitude"`
	Longitude          float64            `json:"longitude"`
	Uncertainty        float64            `json:"uncertainty"`
	Stations           []string           `json:"stations"`
	TimeDifferences    map[string]float64 `json:"time_differences"`
	WeakEventConfirmed bool               `json:"weak_event_confirmed"`
	PlaceName          string             `json:"place_name,omitempty"`
}

type qualifying struct {
	id string
	StationCycleResult
}

// Estimate computes an epicenter from the qualifying results. Stations without
// a detection or a pick are ignored. The earliest pick is the reference and
// Timestamp is its absolute event time. Stations are listed by arrival order.
func Estimate(results map[string]StationCycleResult) (EpicenterEstimate, error) {
	qs := make([]qualifying, 0, len(results))
	for id, r := range results {
		if r.Qualifies() {
			qs = append(qs, qualifying{id: id, StationCycleResult: r})
		}
	}
	if len(qs) < MinQuorum {
		return EpicenterEstimate{}, fmt.Errorf("%w: %d of %d stations", ErrInsufficientQuorum, len(qs), MinQuorum)
	}

	sort.Slice(qs, func(i, j int) bool {
		if qs[i].Pick != qs[j].Pick {
			return qs[i].Pick < qs[j].Pick
		}
		return qs[i].id < qs[j].id
	})
	ref := qs[0]

	est := EpicenterEstimate{
		Timestamp:       ref.EventTime,
		Stations:        make([]string, len(qs)),
		TimeDifferences: make(map[string]float64, len(qs)),
	}

	var wSum, latSum, lonSum float64
	for i, q := range qs {
		diff := q.Pick - ref.Pick
		w := 1 / (math.Abs(diff) + weightEpsilon)
		wSum += w
		latSum += w * q.Latitude
		lonSum += w * q.Longitude

		est.Stations[i] = q.id
		est.TimeDifferences[q.id] = diff
		if q.Class == ClassWeak {
			est.WeakEventConfirmed = true
		}
	}
	est.Latitude = latSum / wSum
	est.Longitude = lonSum / wSum

	lats := make([]float64, len(qs))
	lons := make([]float64, len(qs))
	for i, q := range qs {
		lats[i] = q.Latitude
		lons[i] = q.Longitude
	}
	est.Uncertainty = populationStdDev(lats) + populationStdDev(lons)

	return est, nil
}

func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
