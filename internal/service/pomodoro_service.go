package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/repository"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/export"
	"github.com/noah-isme/studyhub-api/pkg/pomodoro"
)

type pomodoroStore interface {
	LoadTimer(ctx context.Context, userID string) (*pomodoro.Timer, error)
	LoadStats(ctx context.Context, userID string) (*pomodoro.Stats, error)
	Commit(ctx context.Context, userID string, change repository.PomodoroChange) error
	History(ctx context.Context, userID string, limit int) ([]pomodoro.Session, error)
	ClearHistory(ctx context.Context, userID string) error
}

// PomodoroServiceConfig sets defaults for users without stored settings.
type PomodoroServiceConfig struct {
	Defaults     pomodoro.Settings
	HistoryLimit int
}

// PomodoroService runs each user's focus timer against the server clock.
type PomodoroService struct {
	store     pomodoroStore
	exports   *ExportService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PomodoroServiceConfig
	now       func() time.Time
}

// NewPomodoroService constructs PomodoroService.
func NewPomodoroService(store pomodoroStore, exports *ExportService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PomodoroServiceConfig) *PomodoroService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Defaults.Validate() != nil {
		cfg.Defaults = pomodoro.DefaultSettings()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}
	return &PomodoroService{
		store:     store,
		exports:   exports,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Settings returns the user's timer settings.
func (s *PomodoroService) Settings(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroSettings, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	timer, err := s.loadTimer(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	settings := models.PomodoroSettingsFrom(timer.Settings)
	return &settings, nil
}

// UpdateSettings validates and applies new settings to the live timer.
func (s *PomodoroService) UpdateSettings(ctx context.Context, actor *models.JWTClaims, req models.PomodoroSettings) (*models.PomodoroState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pomodoro settings")
	}
	settings := req.ToTimerSettings()
	if err := settings.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, _ time.Time) error {
		t.ApplySettings(settings)
		return nil
	})
}

// State advances the timer to now and returns it.
func (s *PomodoroService) State(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, nil)
}

// Tick is State under the name the client polls with; any phases that
// finished since the last call are returned in Completed.
func (s *PomodoroService) Tick(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, nil)
}

// Start begins the countdown of the current phase.
func (s *PomodoroService) Start(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, now time.Time) error {
		if t.Status == pomodoro.StatusPaused {
			return appErrors.Clone(appErrors.ErrConflict, "timer is paused, resume it instead")
		}
		return timerError(t.Start(now))
	})
}

// Resume continues a paused countdown.
func (s *PomodoroService) Resume(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, now time.Time) error {
		if t.Status != pomodoro.StatusPaused {
			return appErrors.Clone(appErrors.ErrConflict, "timer is not paused")
		}
		return timerError(t.Start(now))
	})
}

// Pause freezes a running countdown.
func (s *PomodoroService) Pause(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, now time.Time) error {
		_, err := t.Pause(now)
		return timerError(err)
	})
}

// Reset refills the current phase and stops the countdown.
func (s *PomodoroService) Reset(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, _ time.Time) error {
		t.Reset()
		return nil
	})
}

// Skip moves to the next phase without recording the current one.
func (s *PomodoroService) Skip(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroState, error) {
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, _ time.Time) error {
		t.Skip()
		return nil
	})
}

// SwitchPhase jumps to the requested phase.
func (s *PomodoroService) SwitchPhase(ctx context.Context, actor *models.JWTClaims, req dto.SwitchPhaseRequest) (*models.PomodoroState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "phase must be work, shortBreak or longBreak")
	}
	return s.mutate(ctx, actor, func(t *pomodoro.Timer, _ time.Time) error {
		return timerError(t.SwitchPhase(req.Phase))
	})
}

// History lists completed sessions, newest first.
func (s *PomodoroService) History(ctx context.Context, actor *models.JWTClaims, query dto.PomodoroHistoryQuery) ([]models.PomodoroSession, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	limit := query.Limit
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	sessions, err := s.store.History(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pomodoro history")
	}
	out := make([]models.PomodoroSession, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, models.PomodoroSessionFrom(session))
	}
	return out, nil
}

// Stats summarises the user's sessions.
func (s *PomodoroService) Stats(ctx context.Context, actor *models.JWTClaims) (*models.PomodoroStats, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	stats, err := s.store.LoadStats(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pomodoro stats")
	}
	return &models.PomodoroStats{
		TotalSessions:  stats.TotalSessions,
		WorkSessions:   stats.WorkSessions,
		BreakSessions:  stats.BreakSessions,
		FocusMinutes:   stats.FocusMinutes,
		TodaySessions:  stats.Today(s.now()),
		CurrentStreak:  stats.CurrentStreak,
		LongestStreak:  stats.LongestStreak,
		LastActiveDate: stats.LastActiveDate,
		UpdatedAt:      stats.UpdatedAt,
	}, nil
}

// ClearHistory drops history and stats; the timer itself is kept.
func (s *PomodoroService) ClearHistory(ctx context.Context, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.store.ClearHistory(ctx, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear pomodoro history")
	}
	return nil
}

// Report renders the user's history as a PDF.
func (s *PomodoroService) Report(ctx context.Context, actor *models.JWTClaims) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.exports.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "exports are disabled")
	}
	history, err := s.History(ctx, actor, dto.PomodoroHistoryQuery{})
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx, actor)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"#", "Phase", "Minutes", "Cycle", "Completed"}}
	for i, session := range history {
		data.Rows = append(data.Rows, map[string]string{
			"#":         strconv.Itoa(i + 1),
			"Phase":     phaseLabel(session.Type),
			"Minutes":   strconv.Itoa(session.DurationSeconds / 60),
			"Cycle":     strconv.Itoa(session.Cycle),
			"Completed": session.CompletedAt.Format("2006-01-02 15:04"),
		})
	}
	subtitle := fmt.Sprintf("%s, %d sessions, %d focus minutes, best streak %d days",
		actor.FullName, stats.TotalSessions, stats.FocusMinutes, stats.LongestStreak)
	return s.exports.Render(ExportFormatPDF, "pomodoro-report", data, "Pomodoro History", subtitle)
}

// mutate loads the timer, catches it up to now, applies fn and commits the
// timer, completed sessions and stats in one write. A failed commit leaves
// the stored timer behind, so the next call replays the same completions.
func (s *PomodoroService) mutate(ctx context.Context, actor *models.JWTClaims, fn func(t *pomodoro.Timer, now time.Time) error) (*models.PomodoroState, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	timer, err := s.loadTimer(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	completed := timer.Tick(now)
	// fn rejects before mutating, so the caught-up timer is saved either way.
	var opErr error
	if fn != nil {
		opErr = fn(timer, now)
	}
	stats, err := s.applySessions(ctx, actor.UserID, completed)
	if err != nil {
		return nil, err
	}
	change := repository.PomodoroChange{Timer: timer, Sessions: completed, HistoryLimit: s.cfg.HistoryLimit}
	if len(completed) > 0 {
		change.Stats = stats
	}
	if err := s.store.Commit(ctx, actor.UserID, change); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save pomodoro timer")
	}
	for _, session := range completed {
		s.metrics.RecordFocusSession(string(session.Type))
	}
	if opErr != nil {
		return nil, opErr
	}

	state := &models.PomodoroState{
		Phase:            timer.Phase,
		Status:           timer.Status,
		RemainingSeconds: int((timer.Remaining + time.Second - 1) / time.Second),
		CompletedWork:    timer.CompletedWork,
		Settings:         models.PomodoroSettingsFrom(timer.Settings),
		TodaySessions:    stats.Today(now),
		ServerTime:       now.UTC(),
	}
	for _, session := range completed {
		state.Completed = append(state.Completed, models.PomodoroSessionFrom(session))
	}
	return state, nil
}

// applySessions folds sessions into the stored stats without saving them.
func (s *PomodoroService) applySessions(ctx context.Context, userID string, sessions []pomodoro.Session) (*pomodoro.Stats, error) {
	stats, err := s.store.LoadStats(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pomodoro stats")
	}
	for _, session := range sessions {
		stats.Record(session)
	}
	return stats, nil
}

func (s *PomodoroService) loadTimer(ctx context.Context, userID string) (*pomodoro.Timer, error) {
	timer, err := s.store.LoadTimer(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pomodoro timer")
	}
	if timer == nil {
		timer = pomodoro.New(s.cfg.Defaults)
	}
	return timer, nil
}

func timerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pomodoro.ErrAlreadyRunning), errors.Is(err, pomodoro.ErrNotRunning):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, err.Error())
	case errors.Is(err, pomodoro.ErrInvalidPhase):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timer error")
	}
}

func phaseLabel(p pomodoro.Phase) string {
	switch p {
	case pomodoro.PhaseShortBreak:
		return "Short break"
	case pomodoro.PhaseLongBreak:
		return "Long break"
	default:
		return "Focus"
	}
}
