package pipeline

import (
	"context"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// announceEvent fans a raw event capture out to the publisher and, when the
// notice passes the notify policy, to the notifier.
func (s *Scheduler) announceEvent(ctx context.Context, n domain.EventNotice) {
	if s.Publisher != nil {
		if err := s.Publisher.PublishEvent(ctx, n); err != nil {
			s.Metrics.PublishFailures.WithLabelValues("kafka").Inc()
			s.Logger.Warn("publish event notice failed", "station", n.Station, "error", err)
		}
	}
	if s.Notifier == nil || !s.settings.NotifyPolicy.ShouldNotify(n) {
		return
	}
	if err := s.Notifier.NotifyEvent(ctx, n); err != nil {
		s.Metrics.PublishFailures.WithLabelValues("notifier").Inc()
		s.Logger.Warn("event notification failed", "station", n.Station, "error", err)
	}
}

// publishEstimate names the estimate and writes it to every sink. Sinks are
// independent: one failing does not stop the others. An estimate with the
// same timestamp as the last one published is not written again.
func (s *Scheduler) publishEstimate(ctx context.Context, est domain.EpicenterEstimate) domain.EpicenterEstimate {
	if est.Timestamp.Equal(s.lastPublished) {
		s.Logger.Debug("estimate already published", "timestamp", est.Timestamp)
		return est
	}
	est = domain.NameEpicenter(ctx, est, s.Geocoder, s.Logger)

	s.Logger.Info("epicenter estimated",
		"timestamp", est.Timestamp,
		"lat", est.Latitude,
		"lon", est.Longitude,
		"uncertainty", est.Uncertainty,
		"stations", est.Stations,
		"weak_event_confirmed", est.WeakEventConfirmed,
		"place", est.PlaceName,
	)

	if err := s.Store.SaveTriangulation(ctx, domain.TriangulationRecord{ID: s.newID(), EpicenterEstimate: est}); err != nil {
		s.Metrics.PublishFailures.WithLabelValues("store").Inc()
		s.Logger.Error("save triangulation failed", "error", err)
	}

	if changed, err := s.Dashboard.Write(est); err != nil {
		s.Metrics.PublishFailures.WithLabelValues("dashboard").Inc()
		s.Logger.Error("dashboard write failed", "error", err)
	} else if !changed {
		s.Logger.Debug("dashboard already current", "timestamp", est.Timestamp)
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishEstimate(ctx, est); err != nil {
			s.Metrics.PublishFailures.WithLabelValues("kafka").Inc()
			s.Logger.Warn("publish estimate failed", "error", err)
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyEstimate(ctx, est); err != nil {
			s.Metrics.PublishFailures.WithLabelValues("notifier").Inc()
			s.Logger.Warn("estimate notification failed", "error", err)
		}
	}

	s.lastPublished = est.Timestamp
	return est
}
