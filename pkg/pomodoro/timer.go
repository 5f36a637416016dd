// Package pomodoro implements a clock-driven focus timer with work, short
// break and long break phases. The timer holds no goroutines: callers feed it
// wall-clock instants through Tick and persist the exported state between
// calls.
package pomodoro

import (
	"errors"
	"fmt"
	"time"
)

// Phase identifies the current timer segment.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "shortBreak"
	PhaseLongBreak  Phase = "longBreak"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

// Status describes whether the countdown is advancing.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

var (
	ErrAlreadyRunning = errors.New("timer already running")
	ErrNotRunning     = errors.New("timer not running")
	ErrInvalidPhase   = errors.New("invalid phase")
)

// Settings configures phase lengths.
type Settings struct {
	Work           time.Duration `json:"work"`
	ShortBreak     time.Duration `json:"shortBreak"`
	LongBreak      time.Duration `json:"longBreak"`
	LongBreakEvery int           `json:"longBreakEvery"`
	AutoStart      bool          `json:"autoStart"`
}

// DefaultSettings mirrors the classic 25/5/15 cadence.
func DefaultSettings() Settings {
	return Settings{
		Work:           25 * time.Minute,
		ShortBreak:     5 * time.Minute,
		LongBreak:      15 * time.Minute,
		LongBreakEvery: 4,
	}
}

// Validate checks durations are positive and the long break interval is sane.
func (s Settings) Validate() error {
	if s.Work <= 0 || s.ShortBreak <= 0 || s.LongBreak <= 0 {
		return fmt.Errorf("phase durations must be positive")
	}
	if s.Work > 4*time.Hour || s.ShortBreak > time.Hour || s.LongBreak > 2*time.Hour {
		return fmt.Errorf("phase duration out of range")
	}
	if s.LongBreakEvery < 1 || s.LongBreakEvery > 12 {
		return fmt.Errorf("long break interval must be between 1 and 12")
	}
	return nil
}

// Duration returns the configured length of a phase.
func (s Settings) Duration(p Phase) time.Duration {
	switch p {
	case PhaseShortBreak:
		return s.ShortBreak
	case PhaseLongBreak:
		return s.LongBreak
	default:
		return s.Work
	}
}

// Session is emitted every time a phase runs to zero.
type Session struct {
	Type        Phase         `json:"type"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completedAt"`
	Cycle       int           `json:"cycle"`
}

// Timer is the persisted countdown state.
type Timer struct {
	Settings      Settings      `json:"settings"`
	Phase         Phase         `json:"phase"`
	Status        Status        `json:"status"`
	Remaining     time.Duration `json:"remaining"`
	CompletedWork int           `json:"completedWork"`
	LastTick      time.Time     `json:"lastTick"`
}

// New returns an idle timer positioned at the start of a work phase.
func New(settings Settings) *Timer {
	return &Timer{
		Settings:  settings,
		Phase:     PhaseWork,
		Status:    StatusIdle,
		Remaining: settings.Work,
	}
}

// Start begins or resumes the countdown.
func (t *Timer) Start(now time.Time) error {
	if t.Status == StatusRunning {
		return ErrAlreadyRunning
	}
	if t.Remaining <= 0 {
		t.Remaining = t.Settings.Duration(t.Phase)
	}
	t.Status = StatusRunning
	t.LastTick = now
	return nil
}

// Pause freezes the countdown, returning any sessions completed up to now.
func (t *Timer) Pause(now time.Time) ([]Session, error) {
	if t.Status != StatusRunning {
		return nil, ErrNotRunning
	}
	sessions := t.Tick(now)
	if t.Status == StatusRunning {
		t.Status = StatusPaused
	}
	return sessions, nil
}

// Reset stops the timer and refills the current phase.
func (t *Timer) Reset() {
	t.Status = StatusIdle
	t.Remaining = t.Settings.Duration(t.Phase)
	t.LastTick = time.Time{}
}

// Skip abandons the current phase without recording a session.
func (t *Timer) Skip() {
	next := PhaseWork
	if t.Phase == PhaseWork {
		next = t.breakAfter(t.CompletedWork + 1)
	}
	t.moveTo(next)
	t.Status = StatusIdle
	t.LastTick = time.Time{}
}

// SwitchPhase jumps to an explicit phase and leaves the timer idle.
func (t *Timer) SwitchPhase(p Phase) error {
	if !p.Valid() {
		return ErrInvalidPhase
	}
	t.moveTo(p)
	t.Status = StatusIdle
	t.LastTick = time.Time{}
	return nil
}

// ApplySettings swaps settings; an idle timer is refilled with the new length.
func (t *Timer) ApplySettings(s Settings) {
	t.Settings = s
	if t.Status == StatusIdle {
		t.Remaining = s.Duration(t.Phase)
	} else if t.Remaining > s.Duration(t.Phase) {
		t.Remaining = s.Duration(t.Phase)
	}
}

// Tick advances a running timer to now. Every phase that reaches zero yields a
// Session. Without AutoStart the timer stops idle at the start of the next
// phase; with AutoStart it keeps consuming the elapsed time.
func (t *Timer) Tick(now time.Time) []Session {
	if t.Status != StatusRunning {
		return nil
	}
	elapsed := now.Sub(t.LastTick)
	if elapsed <= 0 {
		return nil
	}
	var sessions []Session
	cursor := t.LastTick
	for elapsed >= t.Remaining {
		elapsed -= t.Remaining
		cursor = cursor.Add(t.Remaining)
		t.Remaining = 0
		sessions = append(sessions, t.complete(cursor))
		if !t.Settings.AutoStart {
			t.Status = StatusIdle
			t.LastTick = time.Time{}
			return sessions
		}
	}
	t.Remaining -= elapsed
	t.LastTick = now
	return sessions
}

func (t *Timer) complete(at time.Time) Session {
	finished := t.Phase
	session := Session{
		Type:        finished,
		Duration:    t.Settings.Duration(finished),
		CompletedAt: at,
	}
	next := PhaseWork
	if finished == PhaseWork {
		t.CompletedWork++
		next = t.breakAfter(t.CompletedWork)
	}
	session.Cycle = t.CompletedWork
	t.moveTo(next)
	return session
}

func (t *Timer) breakAfter(workCount int) Phase {
	every := t.Settings.LongBreakEvery
	if every <= 0 {
		every = 4
	}
	if workCount > 0 && workCount%every == 0 {
		return PhaseLongBreak
	}
	return PhaseShortBreak
}

func (t *Timer) moveTo(p Phase) {
	t.Phase = p
	t.Remaining = t.Settings.Duration(p)
}
