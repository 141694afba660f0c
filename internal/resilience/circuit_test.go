package resilience

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failOnce(b *Breaker) {
	_ = b.Do(context.Background(), func(_ context.Context) error {
		return errors.New("fail")
	})
}

func TestBreakerClosedPassesThrough(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())

	var calls int
	err := b.Do(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         1 * time.Minute,
	})

	for i := 0; i < 3; i++ {
		failOnce(b)
	}
	require.Equal(t, CircuitOpen, b.State())

	// Open circuit rejects without invoking fn.
	err := b.Do(context.Background(), func(_ context.Context) error {
		t.Error("fn must not run while the circuit is open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         1 * time.Minute,
	})

	failOnce(b)
	failOnce(b)
	assert.Equal(t, 2, b.Failures())
	assert.Equal(t, CircuitClosed, b.State())

	_ = b.Do(context.Background(), func(_ context.Context) error { return nil })
	assert.Zero(t, b.Failures())
}

func TestBreakerCallerSideKindsNeverTrip(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         1 * time.Hour,
	})

	// Bad input, thin content, unparseable HTML, capacity stops, and
	// cancellation say nothing about the remote host's health.
	kinds := []Kind{KindInput, KindContent, KindParse, KindCapacity, KindCancelled}
	for _, kind := range kinds {
		_ = b.Do(context.Background(), func(_ context.Context) error {
			return Classify(kind, eris.New("caller-side failure"))
		})
		assert.Equal(t, CircuitClosed, b.State(), "kind %s must not trip", kind)
		assert.Zero(t, b.Failures(), "kind %s must not count", kind)
	}

	// A network failure of the same shape trips at threshold 1.
	_ = b.Do(context.Background(), func(_ context.Context) error {
		return Classify(KindNetwork, eris.New("connection refused"))
	})
	assert.Equal(t, CircuitOpen, b.State())
}

func TestBreakerOpensImmediatelyOn429(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 10,
		Cooldown:         1 * time.Hour,
	})

	// One rate-limit response opens the circuit even though the
	// failure threshold is far from reached.
	_ = b.Do(context.Background(), func(_ context.Context) error {
		return NewTransientError(eris.New("throttled"), http.StatusTooManyRequests)
	})
	assert.Equal(t, CircuitOpen, b.State())
}

func TestBreaker503CountsButDoesNotFastOpen(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         1 * time.Hour,
	})

	_ = b.Do(context.Background(), func(_ context.Context) error {
		return NewTransientError(eris.New("overloaded"), http.StatusServiceUnavailable)
	})
	assert.Equal(t, CircuitClosed, b.State())
	assert.Equal(t, 1, b.Failures())
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         100 * time.Millisecond,
	})
	b.now = func() time.Time { return now }

	failOnce(b)
	failOnce(b)
	require.Equal(t, CircuitOpen, b.State())

	b.now = func() time.Time { return now.Add(200 * time.Millisecond) }
	assert.Equal(t, CircuitHalfOpen, b.State())

	// A successful probe closes the circuit again.
	err := b.Do(context.Background(), func(_ context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         100 * time.Millisecond,
	})
	b.now = func() time.Time { return now }

	failOnce(b)
	failOnce(b)

	b.now = func() time.Time { return now.Add(200 * time.Millisecond) }

	// Failing the half-open probe restarts the cooldown.
	failOnce(b)
	assert.Equal(t, CircuitOpen, b.State())
	assert.Equal(t, 3, b.Failures())
}

func TestBreakerOnStateChange(t *testing.T) {
	var transitions []struct{ from, to CircuitState }
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         1 * time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, struct{ from, to CircuitState }{from, to})
		},
	})

	failOnce(b)
	failOnce(b)

	require.Len(t, transitions, 1)
	assert.Equal(t, CircuitClosed, transitions[0].from)
	assert.Equal(t, CircuitOpen, transitions[0].to)
}

func TestBreakerTripOnOverride(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         1 * time.Minute,
		TripOn: func(err error) bool {
			return err.Error() == "tripworthy"
		},
	})

	// Filtered errors never count toward the threshold.
	for i := 0; i < 5; i++ {
		_ = b.Do(context.Background(), func(_ context.Context) error {
			return errors.New("non-tripworthy")
		})
	}
	assert.Equal(t, CircuitClosed, b.State())

	for i := 0; i < 2; i++ {
		_ = b.Do(context.Background(), func(_ context.Context) error {
			return errors.New("tripworthy")
		})
	}
	assert.Equal(t, CircuitOpen, b.State())
}

func TestBreakerManualReset(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         1 * time.Hour,
	})

	failOnce(b)
	failOnce(b)
	require.Equal(t, CircuitOpen, b.State())

	b.Reset()
	assert.Equal(t, CircuitClosed, b.State())

	err := b.Do(context.Background(), func(_ context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestBreakerConcurrentAccess(t *testing.T) {
	t.Parallel()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 100,
		Cooldown:         1 * time.Minute,
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Do(context.Background(), func(_ context.Context) error {
				if i%2 == 0 {
					return errors.New("fail")
				}
				return nil
			})
		}()
	}
	wg.Wait()
	// Exercised under -race; only checking for panics and data races.
}

func TestProtectReturnsValue(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())

	val, err := Protect(context.Background(), b, func(_ context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestProtectRejectsWhenOpen(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         1 * time.Hour,
	})
	failOnce(b)

	val, err := Protect(context.Background(), b, func(_ context.Context) (int, error) {
		return 42, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, val)
}

func TestHostBreakersGetOrCreate(t *testing.T) {
	hb := NewHostBreakers(DefaultBreakerConfig())

	b1 := hb.Get("example.com")
	b2 := hb.Get("example.com")
	b3 := hb.Get("docs.example.com")

	assert.Same(t, b1, b2, "same host must share a breaker")
	assert.NotSame(t, b1, b3, "distinct hosts get distinct breakers")
}

func TestHostBreakersStates(t *testing.T) {
	hb := NewHostBreakers(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         1 * time.Hour,
	})

	failOnce(hb.Get("flaky.example"))
	_ = hb.Get("stable.example")

	states := hb.States()
	assert.Equal(t, CircuitOpen, states["flaky.example"])
	assert.Equal(t, CircuitClosed, states["stable.example"])
}

func TestCircuitStateString(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
