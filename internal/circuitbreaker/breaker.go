// Package circuitbreaker sheds load from a failing upstream. The agent
// gateway wraps every capability call in a Breaker so a dead agent
// service fails fast instead of tying up workflow activities until
// their timeouts.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without invoking the wrapped call while the
// breaker is open or the half-open probe budget is spent.
var ErrOpen = errors.New("circuit breaker open")

// Config tunes a Breaker.
type Config struct {
	// FailureThreshold consecutive failures trip the breaker open.
	FailureThreshold uint32
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// ProbeBudget caps concurrent requests allowed through half-open.
	ProbeBudget uint32
}

// DefaultConfig suits a single HTTP upstream.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Second,
		ProbeBudget:      3,
	}
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	name   string
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	openUntil time.Time
	failures  uint32
	successes uint32
	inFlight  uint32
}

// New creates a closed breaker.
func New(name string, cfg Config, logger *zap.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg = DefaultConfig()
	}
	return &Breaker{name: name, cfg: cfg, logger: logger}
}

// Execute runs fn unless the breaker refuses. fn's error feeds the
// breaker's failure accounting and is returned unchanged.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()
	b.record(err == nil)
	return err
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.observe(time.Now())
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.observe(time.Now()) {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.inFlight >= b.cfg.ProbeBudget {
			return ErrOpen
		}
	}
	b.inFlight++
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight > 0 {
		b.inFlight--
	}
	state := b.observe(time.Now())

	if success {
		b.failures = 0
		if state == StateHalfOpen {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	switch state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		b.trip()
	}
}

// observe applies the open-to-half-open timeout transition. Callers hold
// b.mu.
func (b *Breaker) observe(now time.Time) State {
	if b.state == StateOpen && now.After(b.openUntil) {
		b.transition(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) trip() {
	b.openUntil = time.Now().Add(b.cfg.OpenTimeout)
	b.transition(StateOpen)
}

func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0

	b.logger.Warn("Circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}
