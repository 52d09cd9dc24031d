package services

import (
	"summard/internal/structures"
	"sync"
	"time"
)

type PollState int

const (
	NormalPoll PollState = iota
	FastPoll
)

func (p PollState) String() string {
	if p == FastPoll {
		return "fast"
	}
	return "normal"
}

// AliasSchedule picks the delay before the next alias refresh. While the
// share of peers without an alias is above the threshold it stays in
// FastPoll, backing off from the fast interval up to the fast maximum.
type AliasSchedule struct {
	normal    time.Duration
	fast      time.Duration
	fastMax   time.Duration
	threshold float64

	mu       sync.Mutex
	state    PollState
	fastRuns int
	next     time.Duration
	changed  chan struct{}
}

func NewAliasSchedule(conf *structures.Config) *AliasSchedule {
	return &AliasSchedule{
		normal:    conf.Alias.RefreshInterval,
		fast:      conf.Alias.FastInterval,
		fastMax:   max(conf.Alias.FastMaxInterval, conf.Alias.FastInterval),
		threshold: conf.Alias.MissingThreshold,
		state:     FastPoll,
		next:      conf.Alias.FastInterval,
		changed:   make(chan struct{}, 1),
	}
}

// Observe moves the scheduler according to the missing fraction of the last
// pass and returns the new state and delay.
func (a *AliasSchedule) Observe(missingFraction float64) (PollState, time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if missingFraction > a.threshold {
		return a.enterFast()
	}
	prev := a.state
	a.state = NormalPoll
	a.fastRuns = 0
	a.next = a.normal
	if prev != a.state {
		a.notify()
	}
	return a.state, a.next
}

// Failed treats a failed pass like a mostly missing one.
func (a *AliasSchedule) Failed() (PollState, time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enterFast()
}

func (a *AliasSchedule) enterFast() (PollState, time.Duration) {
	prev := a.state
	a.state = FastPoll
	a.fastRuns++
	d := a.fast
	for i := 1; i < a.fastRuns && d < a.fastMax; i++ {
		d *= 2
	}
	a.next = min(d, a.fastMax)
	if prev != a.state {
		a.notify()
	}
	return a.state, a.next
}

func (a *AliasSchedule) notify() {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

func (a *AliasSchedule) State() PollState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AliasSchedule) Next() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Changed signals state transitions, so a sleeping loop can re-read Next.
func (a *AliasSchedule) Changed() <-chan struct{} {
	return a.changed
}
