// Package circuitbreaker protects the acquisition providers from
// hammering hosts that have started failing. Each external host gets
// its own three-state breaker.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrOpenState       = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config tunes breaker behavior.
type Config struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts reset.
	Interval time.Duration
	// Timeout the breaker stays open before probing again.
	Timeout time.Duration
	// Threshold is the minimum request count before the ratio applies.
	Threshold uint32
	// FailureRatio at or above which the breaker opens.
	FailureRatio float64
}

// DefaultConfig returns conservative defaults for page fetching.
func DefaultConfig() *Config {
	return &Config{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      60 * time.Second,
		Threshold:    10,
		FailureRatio: 0.5,
	}
}

// Breaker is a single three-state circuit breaker.
type Breaker struct {
	config *Config

	mu       sync.Mutex
	state    State
	requests uint32
	total    uint32
	failures uint32
	expiry   time.Time
}

// New creates a breaker with the given (or default) config.
func New(config *Config) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}
	if config.Interval == 0 {
		config.Interval = 60 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Breaker{config: config, state: StateClosed}
}

// Execute runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err == nil)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

// Counts returns requests, total and failures of the current window.
func (b *Breaker) Counts() (requests, total, failures uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests, b.total, b.failures
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refresh(now)

	switch b.state {
	case StateOpen:
		return ErrOpenState
	case StateHalfOpen:
		if b.requests >= b.config.MaxRequests {
			return ErrTooManyRequests
		}
	}
	b.requests++
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refresh(now)

	switch b.state {
	case StateClosed:
		b.total++
		if !success {
			b.failures++
		}
		if b.total >= b.config.Threshold {
			ratio := float64(b.failures) / float64(b.total)
			if ratio >= b.config.FailureRatio {
				b.transition(StateOpen, now)
			}
		}
	case StateHalfOpen:
		if success {
			b.total++
			if b.total >= b.config.MaxRequests {
				b.transition(StateClosed, now)
			}
		} else {
			b.transition(StateOpen, now)
		}
	}
}

// refresh advances expired windows: a closed window rolls over, an
// open breaker becomes half-open once its timeout elapses.
func (b *Breaker) refresh(now time.Time) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.resetCounts()
			b.expiry = now.Add(b.config.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) transition(state State, now time.Time) {
	b.state = state
	b.resetCounts()
	switch state {
	case StateClosed:
		b.expiry = now.Add(b.config.Interval)
	case StateOpen:
		b.expiry = now.Add(b.config.Timeout)
	default:
		b.expiry = time.Time{}
	}
}

func (b *Breaker) resetCounts() {
	b.requests, b.total, b.failures = 0, 0, 0
}

// HostBreaker keys breakers by external host.
type HostBreaker struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   *Config
}

// NewHostBreaker creates an empty per-host breaker set.
func NewHostBreaker(config *Config) *HostBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	return &HostBreaker{breakers: make(map[string]*Breaker), config: config}
}

// Execute runs fn under the breaker of the given host.
func (hb *HostBreaker) Execute(host string, fn func() error) error {
	return hb.get(host).Execute(fn)
}

// State returns the state of a host's breaker.
func (hb *HostBreaker) State(host string) State {
	return hb.get(host).State()
}

// Reset discards a host's breaker.
func (hb *HostBreaker) Reset(host string) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	delete(hb.breakers, host)
}

func (hb *HostBreaker) get(host string) *Breaker {
	hb.mu.RLock()
	b, ok := hb.breakers[host]
	hb.mu.RUnlock()
	if ok {
		return b
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()
	if b, ok := hb.breakers[host]; ok {
		return b
	}
	b = New(hb.config)
	hb.breakers[host] = b
	return b
}
