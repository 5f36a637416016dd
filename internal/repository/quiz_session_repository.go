package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/pkg/cache"
)

// ErrSessionNotFound is returned when a quiz session expired or never existed.
var ErrSessionNotFound = errors.New("quiz session not found")

// QuizSessionRepository keeps in-flight quiz sessions in Redis.
type QuizSessionRepository struct {
	client *redis.Client
}

// NewQuizSessionRepository constructs the repository.
func NewQuizSessionRepository(client *redis.Client) *QuizSessionRepository {
	return &QuizSessionRepository{client: client}
}

func quizSessionKey(id string) string { return cache.Key("quiz", "session", id) }

func quizSubmitKey(id string) string { return cache.Key("quiz", "session", id, "submitted") }

// Save stores the session with a TTL.
func (r *QuizSessionRepository) Save(ctx context.Context, session *models.QuizSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal quiz session: %w", err)
	}
	if err := r.client.Set(ctx, quizSessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save quiz session: %w", err)
	}
	return nil
}

// Get loads a session.
func (r *QuizSessionRepository) Get(ctx context.Context, id string) (*models.QuizSession, error) {
	raw, err := r.client.Get(ctx, quizSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load quiz session: %w", err)
	}
	var session models.QuizSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode quiz session: %w", err)
	}
	return &session, nil
}

// ClaimSubmission marks the session as submitted. Only the first caller
// receives true.
func (r *QuizSessionRepository) ClaimSubmission(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, quizSubmitKey(id), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim quiz submission: %w", err)
	}
	return ok, nil
}

// Update rewrites a session keeping its remaining TTL.
func (r *QuizSessionRepository) Update(ctx context.Context, session *models.QuizSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal quiz session: %w", err)
	}
	if err := r.client.SetArgs(ctx, quizSessionKey(session.ID), payload, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("update quiz session: %w", err)
	}
	return nil
}
