// Package resilience provides a shared sony/gobreaker construction point so
// every call site that needs to guard a flaky external dependency (name
// resolution today, any future directory/transport lookups later) uses the
// same defaults instead of hand-rolling Settings inline.
package resilience

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes a circuit breaker's trip/reset behavior.
type BreakerConfig struct {
	Name                string
	MaxHalfOpenRequests uint32
	ResetInterval       time.Duration
	OpenTimeout         time.Duration
	FailureThreshold    uint32
}

// DefaultConfig returns sane defaults for a low-volume, latency-sensitive
// external call (a directory lookup, not a bulk data path).
func DefaultConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxHalfOpenRequests: 4,
		ResetInterval:       30 * time.Second,
		OpenTimeout:         10 * time.Second,
		FailureThreshold:    5,
	}
}

// NewBreaker builds a gobreaker.CircuitBreaker from cfg.
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.ResetInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.FailureThreshold
		},
	})
}

// Execute runs fn through cb, adapting gobreaker's any-based Execute to a
// typed result.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
