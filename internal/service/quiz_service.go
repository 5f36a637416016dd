package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/repository"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/middleware/requestid"
	"github.com/noah-isme/studyhub-api/pkg/quizapi"
)

const maxQuizQuestions = 50

type quizProvider interface {
	Fetch(ctx context.Context, p quizapi.Params) ([]quizapi.RawQuestion, error)
}

type quizSessionStore interface {
	Save(ctx context.Context, session *models.QuizSession, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.QuizSession, error)
	ClaimSubmission(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Update(ctx context.Context, session *models.QuizSession) error
}

// QuizServiceConfig tunes session lifetime and pacing.
type QuizServiceConfig struct {
	SessionTTL         time.Duration
	SecondsPerQuestion int
}

// QuizService generates timed multiple-choice quizzes and grades them once.
type QuizService struct {
	provider  quizProvider
	sessions  quizSessionStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       QuizServiceConfig
	now       func() time.Time
}

// NewQuizService constructs QuizService.
func NewQuizService(provider quizProvider, sessions quizSessionStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg QuizServiceConfig) *QuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SecondsPerQuestion <= 0 {
		cfg.SecondsPerQuestion = 30
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &QuizService{
		provider:  provider,
		sessions:  sessions,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate fetches a batch from the provider and keeps exactly Count usable
// questions. The answer key stays in the stored session.
func (s *QuizService) Generate(ctx context.Context, actor *models.JWTClaims, req dto.GenerateQuizRequest) (*models.QuizView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Category = strings.TrimSpace(req.Category)
	req.Difficulty = strings.TrimSpace(req.Difficulty)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "count must be between 1 and 50")
	}
	difficulty := strings.ToLower(req.Difficulty)

	fetchLimit := req.Count + req.Count/2
	if fetchLimit > maxQuizQuestions {
		fetchLimit = maxQuizQuestions
	}
	raw, err := s.provider.Fetch(ctx, quizapi.Params{Category: req.Category, Difficulty: difficulty, Limit: fetchLimit})
	if err != nil {
		s.metrics.RecordQuizGeneration("upstream_error")
		s.logger.Warn("quiz provider failed", zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
		return nil, upstreamError(err)
	}
	usable := quizapi.NormalizeAll(raw)
	if len(usable) < req.Count {
		s.metrics.RecordQuizGeneration("insufficient")
		s.logger.Info("quiz provider returned too few usable questions",
			zap.Int("requested", req.Count),
			zap.Int("usable", len(usable)),
			zap.Int("received", len(raw)),
		)
		return nil, appErrors.Clone(appErrors.ErrUpstream, "not enough usable questions, try again")
	}
	usable = usable[:req.Count]

	now := s.now().UTC()
	session := &models.QuizSession{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		Category:   req.Category,
		Difficulty: difficulty,
		Questions:  make([]models.QuizQuestion, 0, len(usable)),
		CreatedAt:  now,
		Deadline:   now.Add(time.Duration(req.Count*s.cfg.SecondsPerQuestion) * time.Second),
	}
	view := &models.QuizView{
		SessionID:          session.ID,
		Questions:          make([]models.PublicQuestion, 0, len(usable)),
		SecondsPerQuestion: s.cfg.SecondsPerQuestion,
		Deadline:           session.Deadline,
	}
	for i, q := range usable {
		id := strconv.Itoa(q.SourceID)
		if q.SourceID <= 0 {
			id = "q" + strconv.Itoa(i+1)
		}
		session.Questions = append(session.Questions, models.QuizQuestion{
			ID:           id,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
			Category:     q.Category,
			Difficulty:   q.Difficulty,
		})
		view.Questions = append(view.Questions, models.PublicQuestion{
			ID:         id,
			Text:       q.Text,
			Options:    q.Options,
			Category:   q.Category,
			Difficulty: q.Difficulty,
		})
	}

	if err := s.sessions.Save(ctx, session, s.sessionTTL(session)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store quiz session")
	}
	s.metrics.RecordQuizGeneration("success")
	return view, nil
}

// Submit grades a session once. Late answers are scored and flagged.
func (s *QuizService) Submit(ctx context.Context, actor *models.JWTClaims, sessionID string, req dto.SubmitQuizRequest) (*models.QuizResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answers")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz session not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz session")
	}
	if session.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz session not found or expired")
	}
	if len(req.Answers) > len(session.Questions) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "more answers than questions")
	}

	claimed, err := s.sessions.ClaimSubmission(ctx, session.ID, s.sessionTTL(session))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit quiz")
	}
	if !claimed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "quiz already submitted")
	}

	now := s.now().UTC()
	result := Grade(session, req.Answers)
	result.TimedOut = now.After(session.Deadline)

	session.SubmittedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.Warn("failed to mark quiz session submitted", zap.String("session_id", session.ID), zap.Error(err))
	}
	return result, nil
}

// Grade scores answers against the session's key. Missing or out of range
// answers count as wrong.
func Grade(session *models.QuizSession, answers []int) *models.QuizResult {
	result := &models.QuizResult{
		SessionID: session.ID,
		Total:     len(session.Questions),
		Results:   make([]models.QuizAnswerResult, 0, len(session.Questions)),
	}
	for i, q := range session.Questions {
		selected := -1
		if i < len(answers) && answers[i] >= 0 && answers[i] < len(q.Options) {
			selected = answers[i]
		}
		correct := selected == q.CorrectIndex
		if correct {
			result.Score++
		}
		result.Results = append(result.Results, models.QuizAnswerResult{
			QuestionID:   q.ID,
			Selected:     selected,
			CorrectIndex: q.CorrectIndex,
			Correct:      correct,
			Explanation:  q.Explanation,
		})
	}
	return result
}

// sessionTTL keeps the session at least until well after its deadline.
func (s *QuizService) sessionTTL(session *models.QuizSession) time.Duration {
	ttl := s.cfg.SessionTTL
	if untilDeadline := session.Deadline.Sub(s.now()); untilDeadline*2 > ttl {
		ttl = untilDeadline * 2
	}
	return ttl
}

func upstreamError(err error) error {
	message := "quiz provider unavailable, try again"
	var statusErr *quizapi.StatusError
	switch {
	case errors.Is(err, quizapi.ErrMissingAPIKey):
		message = "quiz provider is not configured"
	case errors.Is(err, quizapi.ErrEmptyResult):
		message = "quiz provider returned no questions, try again"
	case errors.As(err, &statusErr):
		message = "quiz provider responded " + strconv.Itoa(statusErr.StatusCode) + ", try again"
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, message)
}
