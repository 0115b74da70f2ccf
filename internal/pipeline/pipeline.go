// Package pipeline runs the monitoring loop: acquire a window per station,
// detect, pick, record, estimate and publish, then sweep retention.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
	"github.com/couchcryptid/seismic-watch-service/internal/observability"
)

// EstimateStore persists triangulation records.
type EstimateStore interface {
	SaveTriangulation(ctx context.Context, rec domain.TriangulationRecord) error
}

// DashboardWriter projects an estimate into the dashboard artifact. It reports
// whether the artifact changed.
type DashboardWriter interface {
	Write(est domain.EpicenterEstimate) (bool, error)
}

// EstimatePublisher fans estimates and event notices out to downstream consumers.
type EstimatePublisher interface {
	PublishEstimate(ctx context.Context, est domain.EpicenterEstimate) error
	PublishEvent(ctx context.Context, n domain.EventNotice) error
}

// Notifier alerts humans about events, estimates and loop health.
type Notifier interface {
	NotifyEvent(ctx context.Context, n domain.EventNotice) error
	NotifyEstimate(ctx context.Context, est domain.EpicenterEstimate) error
	NotifyError(ctx context.Context, err error) error
	NotifyRecovery(ctx context.Context, failures int) error
}

// Settings are the static acquisition and scheduling parameters.
type Settings struct {
	Network  string
	Channel  string
	Location string

	AcquisitionWindow  time.Duration
	AcquisitionLatency time.Duration
	// AcquisitionWorkers > 1 fetches station windows concurrently before the
	// sequential analysis pass.
	AcquisitionWorkers int
	CycleInterval      time.Duration

	NotifyPolicy domain.NotifyPolicy
}

// Deps are the scheduler's collaborators. Publisher, Notifier and Geocoder
// are optional.
type Deps struct {
	Stations  *domain.Registry
	Source    domain.WaveformSource
	Detector  domain.Detector
	Picker    domain.Picker
	Lifecycle *domain.Lifecycle
	Store     EstimateStore
	Dashboard DashboardWriter
	Publisher EstimatePublisher
	Notifier  Notifier
	Geocoder  domain.ReverseGeocoder
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Scheduler drives monitoring cycles. Cycles never overlap; Run and RunCycle
// must not be called concurrently.
type Scheduler struct {
	Deps
	settings Settings

	ready         atomic.Bool
	cycle         uint64
	failureStreak int
	lastPublished time.Time
	newID         func() string
}

// New creates a Scheduler.
func New(deps Deps, settings Settings) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if settings.AcquisitionWorkers < 1 {
		settings.AcquisitionWorkers = 1
	}
	return &Scheduler{Deps: deps, settings: settings, newID: uuid.NewString}
}

// CheckReadiness returns nil once a cycle has completed.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no monitoring cycle has completed yet")
	}
	return nil
}

// Run executes cycles until ctx is cancelled. Each cycle starts no sooner than
// CycleInterval after the previous one started; a cycle that fails waits the
// full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Logger.Info("scheduler started",
		"stations", s.Stations.IDs(),
		"interval", s.settings.CycleInterval,
		"window", s.settings.AcquisitionWindow,
		"latency", s.settings.AcquisitionLatency,
		"workers", s.settings.AcquisitionWorkers,
	)
	s.Metrics.SchedulerRunning.Set(1)
	defer s.Metrics.SchedulerRunning.Set(0)

	for {
		if ctx.Err() != nil {
			s.Logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}

		report, err := s.RunCycle(ctx)
		wait := s.settings.CycleInterval
		switch {
		case err != nil && ctx.Err() != nil:
			s.Logger.Info("scheduler stopping mid-cycle", "cycle", report.Cycle, "reason", ctx.Err())
			return nil
		case err != nil:
			s.Metrics.CycleFailures.Inc()
			s.Logger.Error("monitoring cycle failed",
				"cycle", report.Cycle,
				"duration", s.Clock.Since(report.Started),
				"error", err,
			)
			s.recordFailure(ctx, err)
		default:
			s.ready.Store(true)
			if report.Degraded() {
				s.recordFailure(ctx, fmt.Errorf("cycle %d: no station returned data", report.Cycle))
			} else {
				s.recordSuccess(ctx)
			}
			wait = max(0, s.settings.CycleInterval-report.Duration)
		}

		if wait > 0 {
			s.Logger.Debug("next cycle scheduled", "in", wait)
		}
		if !s.sleep(ctx, wait) {
			s.Logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunCycle performs one full pass over the registry. A panic inside the cycle
// is recovered and returned as an error.
func (s *Scheduler) RunCycle(ctx context.Context) (report CycleReport, err error) {
	s.cycle++
	report = CycleReport{
		Cycle:   s.cycle,
		Started: s.Clock.Now(),
		Actions: make(map[string]domain.StorageAction, s.Stations.Len()),
	}
	s.Metrics.CyclesTotal.Inc()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle %d panicked: %v", report.Cycle, r)
			s.Logger.Error("cycle panic recovered", "cycle", report.Cycle, "panic", r, "stack", string(debug.Stack()))
		}
		report.Duration = s.Clock.Since(report.Started)
		s.Metrics.CycleDuration.Observe(report.Duration.Seconds())
	}()

	s.Logger.Info("cycle started", "cycle", report.Cycle)
	if err := s.analyzeStations(ctx, &report); err != nil {
		return report, err
	}

	results := make(map[string]domain.StationCycleResult, len(report.Stations))
	for _, r := range report.Stations {
		results[r.Station] = r
	}
	est, err := domain.Estimate(results)
	switch {
	case errors.Is(err, domain.ErrInsufficientQuorum):
		report.QuorumMiss = true
		s.Metrics.QuorumMisses.Inc()
		s.Logger.Info("no epicenter this cycle", "cycle", report.Cycle, "reason", err)
	case err != nil:
		return report, fmt.Errorf("estimate epicenter: %w", err)
	default:
		s.Metrics.EstimatesProduced.Inc()
		published := s.publishEstimate(ctx, est)
		report.Estimate = &published
	}

	if s.Lifecycle.CleanupDue() {
		cleanup, err := s.Lifecycle.Cleanup(ctx)
		s.Metrics.CleanupDeletions.WithLabelValues("age").Add(float64(cleanup.DeletedByAge))
		s.Metrics.CleanupDeletions.WithLabelValues("count").Add(float64(cleanup.DeletedByCount))
		s.Metrics.CleanupFailures.Add(float64(cleanup.Failures))
		if err != nil {
			s.Logger.Error("retention cleanup aborted", "cycle", report.Cycle, "error", err)
		}
		report.Cleanup = &cleanup
	}

	s.Logger.Info("cycle complete",
		"cycle", report.Cycle,
		"stations_with_data", report.StationsWithData(),
		"stations_with_events", report.StationsWithEvents(),
		"qualifying", report.Qualifying(),
		"estimate", report.Estimate != nil,
		"duration", s.Clock.Since(report.Started),
	)
	return report, nil
}

func (s *Scheduler) recordFailure(ctx context.Context, err error) {
	s.failureStreak++
	if s.failureStreak != 1 || s.Notifier == nil {
		return
	}
	if nerr := s.Notifier.NotifyError(ctx, err); nerr != nil {
		s.Metrics.PublishFailures.WithLabelValues("notifier").Inc()
		s.Logger.Warn("error notification failed", "error", nerr)
	}
}

func (s *Scheduler) recordSuccess(ctx context.Context) {
	failures := s.failureStreak
	s.failureStreak = 0
	if failures == 0 || s.Notifier == nil {
		return
	}
	s.Logger.Info("monitoring recovered", "failures", failures)
	if err := s.Notifier.NotifyRecovery(ctx, failures); err != nil {
		s.Metrics.PublishFailures.WithLabelValues("notifier").Inc()
		s.Logger.Warn("recovery notification failed", "error", err)
	}
}

// sleep waits d on the scheduler clock. Returns false if ctx ends first.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.Clock.After(d):
		return true
	}
}
