// Package breaker implements a consecutive-failure circuit breaker.
//
// CLOSED passes every request and counts consecutive failures. Reaching the
// threshold opens the breaker; OPEN rejects everything until Timeout has
// elapsed since the last failure. After that the breaker closes again on the
// next request, or, with HalfOpen set, lets exactly one trial request through
// and decides from its outcome.
package breaker

import (
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	Threshold int
	Timeout   time.Duration
	// HalfOpen requires a successful trial request before closing.
	HalfOpen      bool
	OnStateChange func(from, to State)
	Now           func() time.Time
}

// Snapshot is a copy of the breaker state.
type Snapshot struct {
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastFailureAt       time.Time `json:"lastFailureAt"`
}

type Breaker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	failures      int
	lastFailureAt time.Time
	trialInFlight bool

	// transitions queued for OnStateChange, delivered in order by notify
	pending   []transition
	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closed    bool
	closeOnce sync.Once
}

type transition struct {
	from, to State
}

func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg}
	if cfg.OnStateChange != nil {
		b.wake = make(chan struct{}, 1)
		b.stop = make(chan struct{})
		b.done = make(chan struct{})
		go b.notify()
	}
	return b
}

// Close stops delivering state changes. Transitions already queued are
// delivered before Close returns.
func (b *Breaker) Close() {
	if b.stop == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.stop)
		<-b.done
	})
}

// notify calls OnStateChange for each queued transition, one at a time.
func (b *Breaker) notify() {
	defer close(b.done)
	for {
		select {
		case <-b.wake:
			b.flush()
		case <-b.stop:
			b.flush()
			return
		}
	}
}

func (b *Breaker) flush() {
	b.mu.Lock()
	queued := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, t := range queued {
		b.cfg.OnStateChange(t.from, t.to)
	}
}

// Allow reports whether a request may proceed. Every allowed request must be
// followed by Success or Failure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.cfg.Now().Sub(b.lastFailureAt) < b.cfg.Timeout {
			return false
		}
		if !b.cfg.HalfOpen {
			b.failures = 0
			b.setStateLocked(Closed)
			return true
		}
		b.setStateLocked(HalfOpen)
		b.trialInFlight = true
		return true
	case HalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	}
	return false
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == HalfOpen {
		b.trialInFlight = false
		b.setStateLocked(Closed)
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureAt = b.cfg.Now()

	switch b.state {
	case Closed:
		if b.failures >= b.cfg.Threshold {
			b.setStateLocked(Open)
		}
	case HalfOpen:
		b.trialInFlight = false
		b.setStateLocked(Open)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
		LastFailureAt:       b.lastFailureAt,
	}
}

func (b *Breaker) setStateLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.wake == nil || b.closed {
		return
	}
	b.pending = append(b.pending, transition{from: from, to: to})
	select {
	case b.wake <- struct{}{}:
	default:
	}
}
