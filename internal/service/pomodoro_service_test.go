package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/repository"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/pomodoro"
)

type memoryPomodoroStore struct {
	timers  map[string]pomodoro.Timer
	stats   map[string]pomodoro.Stats
	history map[string][]pomodoro.Session

	commitErr error
}

func newMemoryPomodoroStore() *memoryPomodoroStore {
	return &memoryPomodoroStore{
		timers:  map[string]pomodoro.Timer{},
		stats:   map[string]pomodoro.Stats{},
		history: map[string][]pomodoro.Session{},
	}
}

func (m *memoryPomodoroStore) LoadTimer(ctx context.Context, userID string) (*pomodoro.Timer, error) {
	timer, ok := m.timers[userID]
	if !ok {
		return nil, nil
	}
	return &timer, nil
}

func (m *memoryPomodoroStore) LoadStats(ctx context.Context, userID string) (*pomodoro.Stats, error) {
	stats := m.stats[userID]
	return &stats, nil
}

func (m *memoryPomodoroStore) Commit(ctx context.Context, userID string, change repository.PomodoroChange) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.timers[userID] = *change.Timer
	for _, s := range change.Sessions {
		m.history[userID] = append([]pomodoro.Session{s}, m.history[userID]...)
	}
	if limit := change.HistoryLimit; limit > 0 && len(m.history[userID]) > limit {
		m.history[userID] = m.history[userID][:limit]
	}
	if change.Stats != nil {
		m.stats[userID] = *change.Stats
	}
	return nil
}

func (m *memoryPomodoroStore) History(ctx context.Context, userID string, limit int) ([]pomodoro.Session, error) {
	items := m.history[userID]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memoryPomodoroStore) ClearHistory(ctx context.Context, userID string) error {
	delete(m.history, userID)
	delete(m.stats, userID)
	return nil
}

func newPomodoroServiceForTest(exportsEnabled bool) (*PomodoroService, *memoryPomodoroStore, *time.Time) {
	store := newMemoryPomodoroStore()
	exports := NewExportService(ExportConfig{Enabled: exportsEnabled}, zap.NewNop(), nil, nil)
	svc := NewPomodoroService(store, exports, nil, nil, zap.NewNop(), PomodoroServiceConfig{HistoryLimit: 10})
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, &now
}

func TestPomodoroServiceLifecycle(t *testing.T) {
	svc, store, now := newPomodoroServiceForTest(false)
	ctx := context.Background()

	state, err := svc.State(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, pomodoro.PhaseWork, state.Phase)
	assert.Equal(t, pomodoro.StatusIdle, state.Status)
	assert.Equal(t, 1500, state.RemainingSeconds)

	_, err = svc.Resume(ctx, testStudent)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	_, err = svc.Start(ctx, testStudent)
	require.NoError(t, err)
	_, err = svc.Start(ctx, testStudent)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	*now = now.Add(10 * time.Minute)
	state, err = svc.Pause(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StatusPaused, state.Status)
	assert.Equal(t, 900, state.RemainingSeconds)

	*now = now.Add(time.Hour)
	_, err = svc.Start(ctx, testStudent)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	state, err = svc.Resume(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, 900, state.RemainingSeconds)

	*now = now.Add(16 * time.Minute)
	state, err = svc.Tick(ctx, testStudent)
	require.NoError(t, err)
	require.Len(t, state.Completed, 1)
	assert.Equal(t, pomodoro.PhaseWork, state.Completed[0].Type)
	assert.Equal(t, 1500, state.Completed[0].DurationSeconds)
	assert.Equal(t, pomodoro.PhaseShortBreak, state.Phase)
	assert.Equal(t, pomodoro.StatusIdle, state.Status)
	assert.Equal(t, 1, state.CompletedWork)
	assert.Equal(t, 1, state.TodaySessions)
	assert.Len(t, store.history[testStudent.UserID], 1)

	state, err = svc.Tick(ctx, testStudent)
	require.NoError(t, err)
	assert.Empty(t, state.Completed)

	stats, err := svc.Stats(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WorkSessions)
	assert.Equal(t, 25, stats.FocusMinutes)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestPomodoroServiceSettingsAndPhases(t *testing.T) {
	svc, _, _ := newPomodoroServiceForTest(false)
	ctx := context.Background()

	_, err := svc.UpdateSettings(ctx, testStudent, models.PomodoroSettings{WorkMinutes: 0, ShortBreakMinutes: 5, LongBreakMinutes: 15, LongBreakEvery: 4})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.SwitchPhase(ctx, testStudent, dto.SwitchPhaseRequest{Phase: "nap"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	state, err := svc.SwitchPhase(ctx, testStudent, dto.SwitchPhaseRequest{Phase: pomodoro.PhaseShortBreak})
	require.NoError(t, err)
	assert.Equal(t, 300, state.RemainingSeconds)

	state, err = svc.UpdateSettings(ctx, testStudent, models.PomodoroSettings{WorkMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 20, LongBreakEvery: 2})
	require.NoError(t, err)
	assert.Equal(t, 600, state.RemainingSeconds)

	settings, err := svc.Settings(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, 50, settings.WorkMinutes)
	assert.Equal(t, 2, settings.LongBreakEvery)

	state, err = svc.Skip(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, pomodoro.PhaseWork, state.Phase)
	assert.Equal(t, 3000, state.RemainingSeconds)

	_, err = svc.State(ctx, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestPomodoroServiceHistoryReportAndClear(t *testing.T) {
	svc, store, now := newPomodoroServiceForTest(true)
	ctx := context.Background()

	_, err := svc.Start(ctx, testStudent)
	require.NoError(t, err)
	*now = now.Add(26 * time.Minute)
	_, err = svc.Tick(ctx, testStudent)
	require.NoError(t, err)

	history, err := svc.History(ctx, testStudent, dto.PomodoroHistoryQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, history, 1)

	report, err := svc.Report(ctx, testStudent)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF")))

	require.NoError(t, svc.ClearHistory(ctx, testStudent))
	history, err = svc.History(ctx, testStudent, dto.PomodoroHistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Contains(t, store.timers, testStudent.UserID)

	disabled, _, _ := newPomodoroServiceForTest(false)
	_, err = disabled.Report(ctx, testStudent)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrFeatureDisabled.Code))
}

func TestPomodoroServiceFailedCommitKeepsCompletedSession(t *testing.T) {
	svc, store, now := newPomodoroServiceForTest(false)
	ctx := context.Background()

	_, err := svc.Start(ctx, testStudent)
	require.NoError(t, err)

	*now = now.Add(26 * time.Minute)
	store.commitErr = errors.New("redis down")
	_, err = svc.Tick(ctx, testStudent)
	require.Error(t, err)
	assert.Equal(t, pomodoro.PhaseWork, store.timers[testStudent.UserID].Phase)
	assert.Empty(t, store.history[testStudent.UserID])

	store.commitErr = nil
	state, err := svc.Tick(ctx, testStudent)
	require.NoError(t, err)
	require.Len(t, state.Completed, 1)
	assert.Equal(t, pomodoro.PhaseShortBreak, state.Phase)
	assert.Len(t, store.history[testStudent.UserID], 1)
	assert.Equal(t, 1, store.stats[testStudent.UserID].WorkSessions)
}
