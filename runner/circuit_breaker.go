package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/git-pkgs/artifacts/internal/core"
)

// CircuitBreakerRunner wraps a CommandRunner with per-toolchain circuit
// breakers. Only temporary failures (toolchain unavailable) count against a
// breaker; a user's broken manifest must not trip it.
type CircuitBreakerRunner struct {
	runner   core.CommandRunner
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewCircuitBreakerRunner creates a circuit breaker wrapper for a runner.
func NewCircuitBreakerRunner(r core.CommandRunner) *CircuitBreakerRunner {
	return &CircuitBreakerRunner{
		runner:   r,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates a circuit breaker for the given toolchain.
func (c *CircuitBreakerRunner) getBreaker(tool string) *circuit.Breaker {
	c.mu.RLock()
	breaker, exists := c.breakers[tool]
	c.mu.RUnlock()

	if exists {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := c.breakers[tool]; exists {
		return breaker
	}

	// Trips after 5 consecutive temporary failures
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	c.breakers[tool] = breaker
	return breaker
}

// Run executes the sequence unless the breaker for its toolchain is open.
// An open circuit reports a temporary failure without invoking anything.
func (c *CircuitBreakerRunner) Run(ctx context.Context, cmds []core.Command, opts core.ExecOptions) (string, error) {
	if len(cmds) == 0 {
		return "", nil
	}

	tool := cmds[0].Tool
	breaker := c.getBreaker(tool)

	if !breaker.Ready() {
		return "", fmt.Errorf("circuit breaker open for toolchain %s: %w", tool, core.ErrTemporary)
	}

	var out string
	var runErr error
	err := breaker.Call(func() error {
		out, runErr = c.runner.Run(ctx, cmds, opts)
		if core.IsTemporary(runErr) {
			return runErr
		}
		return nil
	}, 0)

	if err != nil {
		if err == circuit.ErrBreakerOpen {
			return out, fmt.Errorf("circuit breaker open for toolchain %s: %w", tool, core.ErrTemporary)
		}
		return out, err
	}
	return out, runErr
}

// BreakerState returns the current state of the circuit breakers (for
// health checks).
func (c *CircuitBreakerRunner) BreakerState() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	states := make(map[string]string)
	for tool, breaker := range c.breakers {
		if breaker.Tripped() {
			states[tool] = "open"
		} else {
			states[tool] = "closed"
		}
	}
	return states
}
