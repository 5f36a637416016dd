package models

import (
	"time"

	"github.com/noah-isme/studyhub-api/pkg/pomodoro"
)

// PomodoroSettings is the user-facing settings shape, expressed in minutes.
type PomodoroSettings struct {
	WorkMinutes       int  `json:"workMinutes" validate:"required,min=1,max=240"`
	ShortBreakMinutes int  `json:"shortBreakMinutes" validate:"required,min=1,max=60"`
	LongBreakMinutes  int  `json:"longBreakMinutes" validate:"required,min=1,max=120"`
	LongBreakEvery    int  `json:"longBreakEvery" validate:"required,min=1,max=12"`
	AutoStart         bool `json:"autoStart"`
}

// ToTimerSettings converts minutes into timer settings.
func (s PomodoroSettings) ToTimerSettings() pomodoro.Settings {
	return pomodoro.Settings{
		Work:           time.Duration(s.WorkMinutes) * time.Minute,
		ShortBreak:     time.Duration(s.ShortBreakMinutes) * time.Minute,
		LongBreak:      time.Duration(s.LongBreakMinutes) * time.Minute,
		LongBreakEvery: s.LongBreakEvery,
		AutoStart:      s.AutoStart,
	}
}

// PomodoroSettingsFrom converts timer settings into minutes.
func PomodoroSettingsFrom(s pomodoro.Settings) PomodoroSettings {
	return PomodoroSettings{
		WorkMinutes:       int(s.Work / time.Minute),
		ShortBreakMinutes: int(s.ShortBreak / time.Minute),
		LongBreakMinutes:  int(s.LongBreak / time.Minute),
		LongBreakEvery:    s.LongBreakEvery,
		AutoStart:         s.AutoStart,
	}
}

// PomodoroSession is one completed phase as shown in history.
type PomodoroSession struct {
	Type            pomodoro.Phase `json:"type"`
	DurationSeconds int            `json:"durationSeconds"`
	CompletedAt     time.Time      `json:"completedAt"`
	Cycle           int            `json:"cycle"`
}

// PomodoroSessionFrom converts a timer session.
func PomodoroSessionFrom(s pomodoro.Session) PomodoroSession {
	return PomodoroSession{
		Type:            s.Type,
		DurationSeconds: int(s.Duration / time.Second),
		CompletedAt:     s.CompletedAt,
		Cycle:           s.Cycle,
	}
}

// PomodoroState is the current timer as seen by the client.
type PomodoroState struct {
	Phase            pomodoro.Phase    `json:"phase"`
	Status           pomodoro.Status   `json:"status"`
	RemainingSeconds int               `json:"remainingSeconds"`
	CompletedWork    int               `json:"completedWork"`
	Settings         PomodoroSettings  `json:"settings"`
	Completed        []PomodoroSession `json:"completed,omitempty"`
	TodaySessions    int               `json:"todaySessions"`
	ServerTime       time.Time         `json:"serverTime"`
}

// PomodoroStats summarises a user's history.
type PomodoroStats struct {
	TotalSessions  int       `json:"totalSessions"`
	WorkSessions   int       `json:"workSessions"`
	BreakSessions  int       `json:"breakSessions"`
	FocusMinutes   int       `json:"focusMinutes"`
	TodaySessions  int       `json:"todaySessions"`
	CurrentStreak  int       `json:"currentStreak"`
	LongestStreak  int       `json:"longestStreak"`
	LastActiveDate string    `json:"lastActiveDate,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}
