package waveform

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
	"github.com/couchcryptid/seismic-watch-service/internal/observability"
)

// BreakerSettings tunes the circuit around the gateway.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings trips after six straight failures, two cycles of
// three stations, and probes again after two minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 6, OpenTimeout: 2 * time.Minute}
}

// BreakerSource guards a domain.WaveformSource with a circuit breaker.
// Missing data is a healthy answer and never counts against the circuit.
type BreakerSource struct {
	next    domain.WaveformSource
	cb      *gobreaker.CircuitBreaker[domain.SampleWindow]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBreakerSource wraps next.
func NewBreakerSource(next domain.WaveformSource, settings BreakerSettings, logger *slog.Logger, metrics *observability.Metrics) *BreakerSource {
	metrics.WaveformBreakerState.Set(stateValue(gobreaker.StateClosed))
	cb := gobreaker.NewCircuitBreaker[domain.SampleWindow](gobreaker.Settings{
		Name:        "waveform-gateway",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNoData)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("waveform circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.WaveformBreakerState.Set(stateValue(to))
		},
	})
	return &BreakerSource{next: next, cb: cb, logger: logger, metrics: metrics}
}

func (b *BreakerSource) FetchWindow(ctx context.Context, req domain.WaveformRequest) (domain.SampleWindow, error) {
	w, err := b.cb.Execute(func() (domain.SampleWindow, error) {
		return b.next.FetchWindow(ctx, req)
	})
	switch {
	case err == nil:
		b.metrics.WaveformRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrNoData):
		b.metrics.WaveformRequests.WithLabelValues("no_data").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		b.metrics.WaveformRequests.WithLabelValues("rejected").Inc()
	default:
		b.metrics.WaveformRequests.WithLabelValues("error").Inc()
	}
	return w, err
}

// State reports the circuit state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
