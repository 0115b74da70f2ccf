package pipeline

import (
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// CycleReport summarizes one monitoring cycle.
type CycleReport struct {
	Cycle    uint64
	Started  time.Time
	Duration time.Duration

	// Stations holds one result per registered station, in registry order.
	Stations []domain.StationCycleResult
	Actions  map[string]domain.StorageAction
	// AcquisitionErrors counts stations whose fetch failed for a reason
	// other than missing data.
	AcquisitionErrors int

	Estimate   *domain.EpicenterEstimate
	QuorumMiss bool
	Cleanup    *domain.CleanupReport
}

// StationsWithData counts stations that returned a window.
func (r CycleReport) StationsWithData() int {
	n := 0
	for _, s := range r.Stations {
		if s.DataAvailable {
			n++
		}
	}
	return n
}

// StationsWithEvents counts stations with a weak or strong detection.
func (r CycleReport) StationsWithEvents() int {
	n := 0
	for _, s := range r.Stations {
		if s.EventDetected {
			n++
		}
	}
	return n
}

// Qualifying counts stations eligible for estimation.
func (r CycleReport) Qualifying() int {
	n := 0
	for _, s := range r.Stations {
		if s.Qualifies() {
			n++
		}
	}
	return n
}

// Degraded reports a cycle in which no station returned data and at least one
// fetch failed outright.
func (r CycleReport) Degraded() bool {
	return r.AcquisitionErrors > 0 && r.StationsWithData() == 0
}
