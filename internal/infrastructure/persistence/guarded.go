package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/ecoquest/eco-explorer-hub/pkg/circuitbreaker"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
)

// GuardedBackend wraps a network Backend with a circuit breaker. While the
// breaker is open, Get and Put fail immediately and the repository serves
// default profiles without waiting on a dead store.
//
// Ping and Close bypass the breaker so health checks see the real state.
type GuardedBackend struct {
	Backend
	breaker *circuitbreaker.CircuitBreaker
}

// GuardConfig tunes the breaker of a GuardedBackend.
type GuardConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	Now              func() time.Time
}

// NewGuardedBackend wraps b. Missing or corrupt records and version
// conflicts are answers from a live store and never trip the breaker.
func NewGuardedBackend(b Backend, cfg GuardConfig, log *logger.Logger) *GuardedBackend {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("storage_breaker"), logger.Backend(b.Name()))

	isFailure := func(err error) bool {
		return !errors.Is(err, ErrNotFound) &&
			!errors.Is(err, ErrVersionConflict) &&
			!errors.Is(err, ErrCorruptRecord) &&
			!errors.Is(err, context.Canceled)
	}
	onChange := func(name string, from, to circuitbreaker.State) {
		if to == circuitbreaker.StateOpen {
			log.Warn("storage breaker opened", logger.String("from", from.String()))
			return
		}
		log.Info("storage breaker state changed",
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}

	cb := circuitbreaker.StorageBreaker(b.Name(), cfg.FailureThreshold, cfg.Cooldown,
		circuitbreaker.WithIsFailure(isFailure),
		circuitbreaker.WithOnStateChange(onChange),
		circuitbreaker.WithClock(cfg.Now),
	)

	return &GuardedBackend{Backend: b, breaker: cb}
}

// Get implements Backend.
func (g *GuardedBackend) Get(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		rec, err = g.Backend.Get(ctx, key)
		return err
	})
	return rec, err
}

// Put implements Backend.
func (g *GuardedBackend) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	var version int64
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		version, err = g.Backend.Put(ctx, key, data, expected)
		return err
	})
	return version, err
}

// BreakerState returns the breaker position, for health reporting.
func (g *GuardedBackend) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}
