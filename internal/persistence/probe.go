package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"erythu/portal/internal/lifecycle"
)

// Probe opens the unit's factory, pings the database and closes the factory
// again. The check runs inside the circuit breaker so persistent failures
// trip it after three consecutive errors.
func (u *Unit) Probe(ctx context.Context) lifecycle.ProbeResult {
	start := time.Now()

	_, err := u.cb.Execute(func() (any, error) {
		factory, err := u.open(ctx)
		if err != nil {
			return nil, err
		}
		defer factory.Close()

		if err := factory.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) {
			errMsg = "circuit open"
		}
		return lifecycle.ProbeResult{
			Name:      u.name,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return lifecycle.ProbeResult{
		Name:      u.name,
		OK:        true,
		LatencyMs: latency,
	}
}
