// Package breaker wraps outbound API calls in a circuit breaker that reports
// its state to Prometheus.
package breaker

import (
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/meseeks-ai/meseeks/internal/metrics"
)

// Breaker guards calls to one upstream.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// New creates a breaker that opens when at least 60% of 10 or more requests
// within a minute fail, and probes again after 30 seconds.
func New(name string) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("breaker: state transition", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Breaker{name: name, cb: cb}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Do runs fn through the breaker.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	b.record(err)
	return err
}

// Execute runs fn through b and returns its typed result.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	_, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		out = v
		return nil, nil
	})
	b.record(err)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// IsOpen reports whether err was produced by a rejecting breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *Breaker) record(err error) {
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case IsOpen(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
