// Package countdown implements the answer timer used by participant connections.
package countdown

import (
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

type State int

const (
	Idle State = iota
	Armed
	Expired
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Expired:
		return "expired"
	default:
		return "idle"
	}
}

// Clock is the time source. Tests inject a FakeClock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

// System is the wall clock.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Countdown fires onExpire once per Arm unless cancelled or re-armed first.
type Countdown struct {
	clock    Clock
	onExpire func()

	mu       sync.Mutex
	state    State
	gen      uint64
	timer    Timer
	deadline time.Time
}

func New(clock Clock, onExpire func()) *Countdown {
	if clock == nil {
		clock = System
	}
	return &Countdown{clock: clock, onExpire: onExpire}
}

// Arm schedules expiry at deadline, replacing any pending expiry.
// A deadline in the past expires on the next clock tick.
func (c *Countdown) Arm(deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.state = Armed
	c.deadline = deadline
	c.timer = c.clock.AfterFunc(Remaining(deadline, c.clock.Now()), func() { c.fire(gen) })
}

// Cancel disarms the countdown. A pending expiry never fires.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	if c.state == Armed {
		c.state = Idle
	}
}

func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Deadline returns the instant of the current or last arm.
func (c *Countdown) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// Remaining returns the time left until the armed deadline, zero when not armed.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Armed {
		return 0
	}
	return Remaining(c.deadline, c.clock.Now())
}

func (c *Countdown) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Armed {
		c.mu.Unlock()
		return
	}
	c.state = Expired
	c.timer = nil
	c.mu.Unlock()

	if c.onExpire != nil {
		c.onExpire()
	}
}

func (c *Countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Remaining is the time left until deadline, clamped at zero.
func Remaining(deadline, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Deadline derives the answer deadline for a participant's current question.
// In continuous mode every question shares startedAt plus the quiz limit. In
// per-question mode the window opens at the later of startedAt and the last
// answer and lasts the question's own limit, falling back to the quiz limit.
func Deadline(mode domain.TimerMode, startedAt time.Time, lastAnswerAt time.Time, question domain.Question, quizLimit int) time.Time {
	if mode != domain.TimerPerQuestion {
		return startedAt.Add(seconds(quizLimit))
	}

	opened := startedAt
	if lastAnswerAt.After(opened) {
		opened = lastAnswerAt
	}
	limit := question.TimeLimit
	if limit <= 0 {
		limit = quizLimit
	}
	return opened.Add(seconds(limit))
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
