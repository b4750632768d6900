package transport

import (
	"sync"
	"time"

	"github.com/cairocart/storefront-go/core"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreakerConfig configures the breaker thresholds
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before allowing a
	// half-open probe.
	OpenTimeout time.Duration

	// HalfOpenSuccesses is the number of consecutive successes in
	// half-open state required to close the circuit again.
	HalfOpenSuccesses int
}

// DefaultCircuitBreakerConfig provides sensible defaults
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		OpenTimeout:       30 * time.Second,
		HalfOpenSuccesses: 2,
	}
}

// CircuitBreaker protects the backend from request storms while it is
// failing. Server errors (5xx) and transport failures count as failures;
// client errors (4xx) do not affect circuit state.
//
// States: closed (normal), open (fast failure), half-open (probing).
type CircuitBreaker struct {
	mu        sync.Mutex
	config    CircuitBreakerConfig
	state     string
	failures  int
	successes int
	openedAt  time.Time
	logger    core.Logger
	now       func() time.Time // injectable clock for tests
}

// NewCircuitBreaker creates a circuit breaker in the closed state
func NewCircuitBreaker(config CircuitBreakerConfig, logger core.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 2
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		logger: logger,
		now:    time.Now,
	}
}

// CanExecute reports whether a request may proceed. An open circuit
// transitions to half-open once the open timeout has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.config.OpenTimeout {
			cb.state = StateHalfOpen
			cb.successes = 0
			cb.logger.Info("Circuit breaker half-open", map[string]interface{}{
				"operation": "circuit_transition",
				"state":     StateHalfOpen,
			})
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenSuccesses {
			cb.state = StateClosed
			cb.failures = 0
			cb.logger.Info("Circuit breaker closed", map[string]interface{}{
				"operation": "circuit_transition",
				"state":     StateClosed,
			})
		}
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		// A failed probe reopens the circuit immediately
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.successes = 0
	cb.logger.Warn("Circuit breaker opened", map[string]interface{}{
		"operation": "circuit_transition",
		"state":     StateOpen,
		"failures":  cb.failures,
	})
}

// GetState returns the current state string
func (cb *CircuitBreaker) GetState() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
