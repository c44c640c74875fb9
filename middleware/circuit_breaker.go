package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shrek82/jrecord/core"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreakerMiddleware stops calling the store after Threshold consecutive
// failures and lets a single probe through once ResetTimeout has passed.
// A missing record is an answer, not a failure.
type CircuitBreakerMiddleware struct {
	Threshold    int           // Number of failures before opening
	ResetTimeout time.Duration // Time to wait before half-open

	mu             sync.Mutex
	state          State
	failures       int
	lastFailure    time.Time
	halfOpenPassed bool
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreakerMiddleware {
	return &CircuitBreakerMiddleware{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

func (m *CircuitBreakerMiddleware) Name() string {
	return "CircuitBreaker"
}

func (m *CircuitBreakerMiddleware) Init(e *core.Engine) error {
	return nil
}

func (m *CircuitBreakerMiddleware) Shutdown() error {
	return nil
}

// State returns the current breaker state.
func (m *CircuitBreakerMiddleware) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CircuitBreakerMiddleware) Process(ctx context.Context, op *core.Operation, next core.OpFunc) (*core.OpResult, error) {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		if time.Since(m.lastFailure) > m.ResetTimeout {
			m.state = StateHalfOpen
			m.halfOpenPassed = true
		} else {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
	case StateHalfOpen:
		if m.halfOpenPassed {
			// one probe at a time
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		m.halfOpenPassed = true
	}
	m.mu.Unlock()

	res, err := next(ctx, op)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil && !errors.Is(err, core.ErrRecordNotFound) {
		m.recordFailure()
	} else {
		m.recordSuccess()
	}

	return res, err
}

func (m *CircuitBreakerMiddleware) recordFailure() {
	m.failures++
	m.lastFailure = time.Now()

	if m.state == StateClosed {
		if m.failures >= m.Threshold {
			m.state = StateOpen
		}
	} else if m.state == StateHalfOpen {
		m.state = StateOpen
		m.halfOpenPassed = false
	}
}

func (m *CircuitBreakerMiddleware) recordSuccess() {
	if m.state == StateHalfOpen {
		m.state = StateClosed
		m.halfOpenPassed = false
	}
	// failures counts consecutive failures only
	m.failures = 0
}
