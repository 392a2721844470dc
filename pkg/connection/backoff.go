package connection

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// InitialBackoff is the delay after the first resolved failure.
	InitialBackoff = 1 * time.Second

	// MaxBackoff caps the delay between retries.
	MaxBackoff = 60 * time.Second

	// BackoffMultiplier is the growth factor between consecutive delays.
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum random fraction added to each delay.
	JitterFactor = 0.25
)

// Backoff produces exponentially growing retry delays with jitter.
// It is safe for concurrent use.
type Backoff struct {
	mu         sync.Mutex
	current    time.Duration
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	attempts   int
}

// BackoffConfig overrides the default backoff parameters.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewBackoff returns a Backoff with the default parameters.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	})
}

// NewBackoffWithConfig returns a Backoff with the given parameters.
// Out-of-range values fall back to the defaults.
func NewBackoffWithConfig(config BackoffConfig) *Backoff {
	if config.Initial <= 0 {
		config.Initial = InitialBackoff
	}
	if config.Max <= 0 {
		config.Max = MaxBackoff
	}
	if config.Multiplier <= 1 {
		config.Multiplier = BackoffMultiplier
	}
	if config.Jitter < 0 {
		config.Jitter = 0
	}
	return &Backoff{
		current:    config.Initial,
		initial:    config.Initial,
		max:        config.Max,
		multiplier: config.Multiplier,
		jitter:     config.Jitter,
	}
}

// Next returns the delay to wait before the next retry and advances
// the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.current)
	b.attempts++

	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// Peek returns the next delay without advancing the backoff.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Reset returns the backoff to its initial delay.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last
// reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.jitter*rand.Float64())
}

// BackoffSequence returns the un-jittered delays a default Backoff
// produces, for documentation and tests.
func BackoffSequence() []time.Duration {
	return []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
	}
}
