// Package resilience provides the audit error taxonomy plus circuit
// breaker and retry patterns for network and persistence calls.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the observable condition of a breaker.
type CircuitState int

const (
	// CircuitClosed: calls flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen: the cooldown is running; calls are rejected.
	CircuitOpen
	// CircuitHalfOpen: the cooldown elapsed; calls are admitted as
	// recovery probes.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls when a breaker opens and how it recovers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive trip-worthy
	// failures before the breaker opens. Default: 5.
	FailureThreshold int

	// Cooldown is how long an open breaker rejects calls before
	// admitting recovery probes. Default: 30s.
	Cooldown time.Duration

	// ProbeSuccesses is the number of successful probes that close a
	// half-open breaker. Default: 1.
	ProbeSuccesses int

	// TripOn overrides ShouldTrip as the failure filter.
	TripOn func(err error) bool

	// OnStateChange observes breaker transitions.
	OnStateChange func(from, to CircuitState)
}

// DefaultBreakerConfig returns the breaker settings used for crawl
// hosts and answer engines.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		ProbeSuccesses:   1,
	}
}

// ShouldTrip reports whether an error counts against a breaker. Only
// failures that say something about the remote service count:
// caller-side kinds (bad input, unusable content, parse failures,
// capacity stops) and cancellation never trip.
func ShouldTrip(err error) bool {
	if err == nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	switch KindOf(err) {
	case KindInput, KindContent, KindParse, KindCapacity, KindCancelled:
		return false
	}
	return true
}

// tooManyRequests reports whether the error carries an HTTP 429. The
// host asked for backoff, so the breaker opens without burning the
// remaining failure threshold against a rate limiter.
func tooManyRequests(err error) bool {
	var te *TransientError
	return errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests
}

// Breaker is a circuit breaker for one remote party, a crawled host or
// an answer engine. Its state is derived from the clock: a breaker is
// open until its cooldown deadline passes, then half-open until enough
// probes succeed.
type Breaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	failures  int       // consecutive trip-worthy failures
	probes    int       // successful probes since the cooldown elapsed
	openUntil time.Time // zero while closed
	now       func() time.Time
}

// NewBreaker creates a Breaker, filling zero config fields with the
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeSuccesses <= 0 {
		cfg.ProbeSuccesses = 1
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do runs fn unless the breaker is open, and settles the outcome.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.settle(err)
	return err
}

// Protect is Do for calls with a return value.
func Protect[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.settle(err)
	return val, err
}

// State returns the breaker's current condition.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Failures returns the consecutive trip-worthy failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker closed, for manual recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shut(b.stateLocked())
}

func (b *Breaker) stateLocked() CircuitState {
	switch {
	case b.openUntil.IsZero():
		return CircuitClosed
	case b.now().Before(b.openUntil):
		return CircuitOpen
	default:
		return CircuitHalfOpen
	}
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stateLocked() == CircuitOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	from := b.stateLocked()

	trip := b.cfg.TripOn
	if trip == nil {
		trip = ShouldTrip
	}

	if err == nil || !trip(err) {
		switch from {
		case CircuitHalfOpen:
			b.probes++
			if b.probes >= b.cfg.ProbeSuccesses {
				b.shut(from)
			}
		case CircuitClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch {
	case from == CircuitHalfOpen:
		// A failed probe restarts the cooldown.
		b.trip(from)
	case tooManyRequests(err):
		b.trip(from)
	case b.failures >= b.cfg.FailureThreshold:
		b.trip(from)
	}
}

func (b *Breaker) trip(from CircuitState) {
	b.openUntil = b.now().Add(b.cfg.Cooldown)
	b.probes = 0
	b.notify(from, CircuitOpen)
}

func (b *Breaker) shut(from CircuitState) {
	b.openUntil = time.Time{}
	b.failures = 0
	b.probes = 0
	b.notify(from, CircuitClosed)
}

func (b *Breaker) notify(from, to CircuitState) {
	if b.cfg.OnStateChange != nil && from != to {
		b.cfg.OnStateChange(from, to)
	}
}

// HostBreakers keys breakers by crawl host so a host that keeps
// failing or throttling the bot stops receiving requests for a while
// without slowing the rest of the frontier.
type HostBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      BreakerConfig
}

// NewHostBreakers creates an empty per-host breaker registry.
func NewHostBreakers(cfg BreakerConfig) *HostBreakers {
	return &HostBreakers{
		breakers: make(map[string]*Breaker),
		cfg:      cfg,
	}
}

// Get returns the breaker for host, creating one on first use.
func (hb *HostBreakers) Get(host string) *Breaker {
	hb.mu.RLock()
	b, ok := hb.breakers[host]
	hb.mu.RUnlock()
	if ok {
		return b
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()
	if b, ok = hb.breakers[host]; ok {
		return b
	}
	b = NewBreaker(hb.cfg)
	hb.breakers[host] = b
	return b
}

// States snapshots every host's breaker state for diagnostics.
func (hb *HostBreakers) States() map[string]CircuitState {
	hb.mu.RLock()
	defer hb.mu.RUnlock()
	states := make(map[string]CircuitState, len(hb.breakers))
	for host, b := range hb.breakers {
		states[host] = b.State()
	}
	return states
}
