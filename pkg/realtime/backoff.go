package realtime

import (
	"math/rand"
	"sync"
	"time"
)

// Reconnect backoff parameters. Delays double per attempt up to the
// cap, with random jitter so a fleet of clients does not stampede the
// server after an outage.
const (
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 30 * time.Second
	reconnectMultiplier   = 2.0
	reconnectJitter       = 0.25
)

// backoff produces the delay before each reconnect attempt.
type backoff struct {
	mu       sync.Mutex
	current  time.Duration
	attempts int
	rng      *rand.Rand
}

func newBackoff() *backoff {
	return &backoff{
		current: reconnectInitialDelay,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// next returns the jittered delay for the upcoming attempt and advances
// the schedule.
func (b *backoff) next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current + time.Duration(float64(b.current)*reconnectJitter*b.rng.Float64())

	b.attempts++
	b.current = time.Duration(float64(b.current) * reconnectMultiplier)
	if b.current > reconnectMaxDelay {
		b.current = reconnectMaxDelay
	}
	return delay
}

// reset restores the initial schedule after a successful connection.
func (b *backoff) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = reconnectInitialDelay
	b.attempts = 0
}

func (b *backoff) attemptCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
