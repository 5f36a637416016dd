package pomodoro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func shortSettings() Settings {
	return Settings{Work: 10 * time.Second, ShortBreak: 3 * time.Second, LongBreak: 6 * time.Second, LongBreakEvery: 4}
}

func TestWorkSessionCompletesIntoShortBreak(t *testing.T) {
	timer := New(shortSettings())
	require.NoError(t, timer.Start(base))

	assert.Empty(t, timer.Tick(base.Add(9*time.Second)))
	assert.Equal(t, time.Second, timer.Remaining)

	sessions := timer.Tick(base.Add(10 * time.Second))
	require.Len(t, sessions, 1)
	assert.Equal(t, PhaseWork, sessions[0].Type)
	assert.Equal(t, 10*time.Second, sessions[0].Duration)
	assert.Equal(t, base.Add(10*time.Second), sessions[0].CompletedAt)
	assert.Equal(t, 1, timer.CompletedWork)
	assert.Equal(t, PhaseShortBreak, timer.Phase)
	assert.Equal(t, StatusIdle, timer.Status)
	assert.Equal(t, 3*time.Second, timer.Remaining)
}

func TestFourthWorkSessionLeadsToLongBreak(t *testing.T) {
	timer := New(shortSettings())
	now := base
	var phases []Phase
	for i := 0; i < 4; i++ {
		require.NoError(t, timer.Start(now))
		now = now.Add(10 * time.Second)
		require.Len(t, timer.Tick(now), 1)
		phases = append(phases, timer.Phase)
		if i < 3 {
			require.NoError(t, timer.Start(now))
			now = now.Add(3 * time.Second)
			require.Len(t, timer.Tick(now), 1)
			require.Equal(t, PhaseWork, timer.Phase)
		}
	}
	assert.Equal(t, []Phase{PhaseShortBreak, PhaseShortBreak, PhaseShortBreak, PhaseLongBreak}, phases)
	assert.Equal(t, 4, timer.CompletedWork)
}

func TestAutoStartConsumesElapsedAcrossPhases(t *testing.T) {
	settings := shortSettings()
	settings.AutoStart = true
	timer := New(settings)
	require.NoError(t, timer.Start(base))

	sessions := timer.Tick(base.Add(14 * time.Second))
	require.Len(t, sessions, 2)
	assert.Equal(t, PhaseWork, sessions[0].Type)
	assert.Equal(t, PhaseShortBreak, sessions[1].Type)
	assert.Equal(t, base.Add(13*time.Second), sessions[1].CompletedAt)
	assert.Equal(t, PhaseWork, timer.Phase)
	assert.Equal(t, StatusRunning, timer.Status)
	assert.Equal(t, 9*time.Second, timer.Remaining)
}

func TestPauseResumeKeepsRemaining(t *testing.T) {
	timer := New(shortSettings())
	require.NoError(t, timer.Start(base))
	_, err := timer.Pause(base.Add(4 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, timer.Status)
	assert.Equal(t, 6*time.Second, timer.Remaining)

	assert.Empty(t, timer.Tick(base.Add(time.Hour)))
	assert.Equal(t, 6*time.Second, timer.Remaining)

	require.NoError(t, timer.Start(base.Add(time.Hour)))
	assert.ErrorIs(t, timer.Start(base.Add(time.Hour)), ErrAlreadyRunning)
	sessions := timer.Tick(base.Add(time.Hour + 6*time.Second))
	require.Len(t, sessions, 1)

	_, err = timer.Pause(base.Add(2 * time.Hour))
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRemainingNeverNegative(t *testing.T) {
	timer := New(shortSettings())
	require.NoError(t, timer.Start(base))
	timer.Tick(base.Add(time.Hour))
	assert.GreaterOrEqual(t, timer.Remaining, time.Duration(0))
	assert.Empty(t, timer.Tick(base.Add(-time.Hour)))
}

func TestSkipAndReset(t *testing.T) {
	timer := New(shortSettings())
	timer.Skip()
	assert.Equal(t, PhaseShortBreak, timer.Phase)
	assert.Equal(t, 0, timer.CompletedWork)
	timer.Skip()
	assert.Equal(t, PhaseWork, timer.Phase)

	require.NoError(t, timer.Start(base))
	timer.Tick(base.Add(5 * time.Second))
	timer.Reset()
	assert.Equal(t, StatusIdle, timer.Status)
	assert.Equal(t, 10*time.Second, timer.Remaining)

	assert.ErrorIs(t, timer.SwitchPhase("nap"), ErrInvalidPhase)
	require.NoError(t, timer.SwitchPhase(PhaseLongBreak))
	assert.Equal(t, 6*time.Second, timer.Remaining)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
	bad := DefaultSettings()
	bad.Work = 0
	assert.Error(t, bad.Validate())
	bad = DefaultSettings()
	bad.LongBreakEvery = 0
	assert.Error(t, bad.Validate())
}

func TestStatsRecord(t *testing.T) {
	var stats Stats
	stats.Record(Session{Type: PhaseWork, Duration: 25 * time.Minute, CompletedAt: base})
	stats.Record(Session{Type: PhaseShortBreak, Duration: 5 * time.Minute, CompletedAt: base.Add(30 * time.Minute)})
	stats.Record(Session{Type: PhaseWork, Duration: 25 * time.Minute, CompletedAt: base.AddDate(0, 0, 1)})

	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 2, stats.WorkSessions)
	assert.Equal(t, 1, stats.BreakSessions)
	assert.Equal(t, 50, stats.FocusMinutes)
	assert.Equal(t, 1, stats.Today(base.AddDate(0, 0, 1)))
	assert.Equal(t, 0, stats.Today(base.AddDate(0, 0, 5)))
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)

	stats.Record(Session{Type: PhaseWork, Duration: 25 * time.Minute, CompletedAt: base.AddDate(0, 0, 4)})
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
}
