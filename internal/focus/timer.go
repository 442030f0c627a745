// Package focus implements the work/break countdown used for focus sessions.
package focus

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/revtrack/pkg/models"
)

// Phase is the kind of session being counted down
type Phase int

const (
	Work Phase = iota
	Break
)

func (p Phase) String() string {
	if p == Break {
		return "break"
	}
	return "work"
}

// Status is the headline shown while the phase is active
func (p Phase) Status() string {
	if p == Break {
		return "Time for a Break!"
	}
	return "Time to Work!"
}

func (p Phase) next() Phase {
	if p == Work {
		return Break
	}
	return Work
}

// State is a snapshot of the timer
type State struct {
	Phase     Phase
	Remaining time.Duration
	Running   bool
}

// Clock renders the remaining time as MM:SS
func (s State) Clock() string {
	secs := int(s.Remaining / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Timer counts down work and break phases one tick at a time.
// When a phase runs out the timer switches to the other phase, pauses
// and reports the new phase to the alarm callback.
type Timer struct {
	mu        sync.Mutex
	work      time.Duration
	brk       time.Duration
	phase     Phase
	remaining time.Duration
	running   bool
	stop      chan struct{}

	interval time.Duration
	onAlarm  func(Phase)
	onTick   func(State)
}

// Option configures a Timer
type Option func(*Timer)

// WithInterval sets how often the timer ticks. Each tick removes one second.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

// WithAlarm sets the callback fired when a phase ends
func WithAlarm(fn func(next Phase)) Option {
	return func(t *Timer) { t.onAlarm = fn }
}

// WithTick sets a callback fired after every tick that does not end the phase
func WithTick(fn func(State)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// NewTimer creates a paused timer at the start of a work phase
func NewTimer(work, brk time.Duration, opts ...Option) *Timer {
	t := &Timer{
		work:     work,
		brk:      brk,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.phase = Work
	t.remaining = work
	return t
}

// NewTimerFromSettings creates a timer using stored minute durations
func NewTimerFromSettings(p models.PomodoroSettings, opts ...Option) *Timer {
	work, brk := Durations(p)
	return NewTimer(work, brk, opts...)
}

// Durations converts stored minutes to durations
func Durations(p models.PomodoroSettings) (work, brk time.Duration) {
	return time.Duration(p.WorkMinutes) * time.Minute, time.Duration(p.BreakMinutes) * time.Minute
}

// Start resumes the countdown. It returns false if the timer is already running.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return false
	}
	t.running = true
	t.stop = make(chan struct{})
	go t.run(t.stop)
	return true
}

// Pause stops the countdown, keeping the remaining time
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
}

// Reset stops the countdown and returns to the start of a work phase
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.phase = Work
	t.remaining = t.work
}

// Configure applies new phase durations and resets the timer
func (t *Timer) Configure(work, brk time.Duration) {
	t.mu.Lock()
	t.work = work
	t.brk = brk
	t.mu.Unlock()

	t.Reset()
}

// SetDurations applies new phase durations without resetting. A running
// countdown keeps its remaining time and the new durations apply from the
// next phase. A paused timer restarts its current phase at the new length.
func (t *Timer) SetDurations(work, brk time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.work = work
	t.brk = brk
	if t.running {
		return
	}
	if t.phase == Work {
		t.remaining = work
	} else {
		t.remaining = brk
	}
}

// State returns the current snapshot
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) stateLocked() State {
	return State{Phase: t.phase, Remaining: t.remaining, Running: t.running}
}

// halt must be called with mu held
func (t *Timer) halt() {
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
	t.stop = nil
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.tick(stop) {
				return
			}
		}
	}
}

// tick advances the countdown by one second. It returns false once the
// loop owning stop should exit.
func (t *Timer) tick(stop chan struct{}) bool {
	t.mu.Lock()
	if !t.running || t.stop != stop {
		t.mu.Unlock()
		return false
	}

	t.remaining -= time.Second
	if t.remaining > 0 {
		state := t.stateLocked()
		onTick := t.onTick
		t.mu.Unlock()
		if onTick != nil {
			onTick(state)
		}
		return true
	}

	t.phase = t.phase.next()
	if t.phase == Work {
		t.remaining = t.work
	} else {
		t.remaining = t.brk
	}
	t.halt()
	next := t.phase
	onAlarm := t.onAlarm
	t.mu.Unlock()

	if onAlarm != nil {
		onAlarm(next)
	}
	return false
}
