package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

type acquisition struct {
	window domain.SampleWindow
	err    error
}

// analyzeStations visits every registered station in registry order and fills
// report.Stations. Station failures are recorded in the report; only context
// cancellation ends the pass early.
func (s *Scheduler) analyzeStations(ctx context.Context, report *CycleReport) error {
	stations := s.Stations.Stations()
	now := s.Clock.Now().UTC()
	end := now.Add(-s.settings.AcquisitionLatency)
	start := end.Add(-s.settings.AcquisitionWindow)

	var prefetched []acquisition
	if s.settings.AcquisitionWorkers > 1 {
		prefetched = s.prefetch(ctx, stations, start)
	}

	report.Stations = make([]domain.StationCycleResult, 0, len(stations))
	for i, st := range stations {
		if err := ctx.Err(); err != nil {
			return err
		}
		var acq acquisition
		if prefetched != nil {
			acq = prefetched[i]
		} else {
			acq = s.acquire(ctx, st.ID, start)
		}
		result := s.analyze(ctx, st, acq, report)
		report.Stations = append(report.Stations, result)
	}
	return nil
}

// prefetch acquires all station windows with at most AcquisitionWorkers
// requests in flight and returns them in station order.
func (s *Scheduler) prefetch(ctx context.Context, stations []domain.StationProfile, start time.Time) []acquisition {
	out := make([]acquisition, len(stations))
	sem := make(chan struct{}, s.settings.AcquisitionWorkers)
	var wg sync.WaitGroup
	for i, st := range stations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = acquisition{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			out[i] = s.acquire(ctx, st.ID, start)
		}()
	}
	wg.Wait()
	return out
}

func (s *Scheduler) acquire(ctx context.Context, station string, start time.Time) acquisition {
	w, err := s.Source.FetchWindow(ctx, domain.WaveformRequest{
		Network:  s.settings.Network,
		Station:  station,
		Location: s.settings.Location,
		Channel:  s.settings.Channel,
		Start:    start,
		Duration: s.settings.AcquisitionWindow,
	})
	return acquisition{window: w, err: err}
}

func (s *Scheduler) analyze(ctx context.Context, st domain.StationProfile, acq acquisition, report *CycleReport) domain.StationCycleResult {
	result := domain.StationCycleResult{
		Station:   st.ID,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
	}
	if acq.err != nil {
		s.Metrics.AcquisitionFailures.WithLabelValues(st.ID).Inc()
		if errors.Is(acq.err, domain.ErrNoData) {
			s.Logger.Info("no waveform data", "station", st.ID)
		} else {
			report.AcquisitionErrors++
			s.Logger.Warn("waveform acquisition failed", "station", st.ID, "error", acq.err)
		}
		report.Actions[st.ID] = domain.ActionNone
		return result
	}

	w := acq.window
	result.DataAvailable = true

	outcome := s.Detector.Detect(w)
	result.Class = outcome.Class
	result.EventDetected = outcome.Detected()
	result.Peak = outcome.Peak
	result.RMS = outcome.RMS
	s.Metrics.Detections.WithLabelValues(st.ID, outcome.Class.String()).Inc()

	if result.EventDetected {
		if pick, ok := s.Picker.Pick(w, outcome.WindowStart); ok {
			result.Pick = pick
			result.HasPick = true
			result.EventTime = w.OffsetTime(pick)
			s.Metrics.Picks.WithLabelValues(st.ID, "picked").Inc()
		} else {
			s.Metrics.Picks.WithLabelValues(st.ID, "none").Inc()
		}
		s.Logger.Info("event detected",
			"station", st.ID,
			"class", outcome.Class.String(),
			"rms", outcome.RMS,
			"peak", outcome.Peak,
			"pick_seconds", result.Pick,
			"picked", result.HasPick,
		)
	}

	action, err := s.Lifecycle.Record(ctx, st.ID, w, outcome)
	report.Actions[st.ID] = action
	s.Metrics.LifecycleActions.WithLabelValues(string(action)).Inc()
	if err != nil {
		s.Metrics.PersistenceFailures.WithLabelValues(string(action)).Inc()
		s.Logger.Error("persist station window failed", "station", st.ID, "action", action, "error", err)
		return result
	}

	if action == domain.ActionEventRaw {
		s.announceEvent(ctx, domain.EventNotice{
			Station:     st.ID,
			StationName: st.Name,
			Timestamp:   s.Clock.Now().UTC(),
			Peak:        outcome.Peak,
			RMS:         outcome.RMS,
			Duration:    w.Duration(),
			Latitude:    st.Latitude,
			Longitude:   st.Longitude,
		})
	}
	return result
}
