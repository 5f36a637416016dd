package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/studyhub-api/pkg/cache"
	"github.com/noah-isme/studyhub-api/pkg/pomodoro"
)

// PomodoroRepository keeps per-user timer state in Redis. Keys carry no
// expiry; history is a capped list newest first.
type PomodoroRepository struct {
	client *redis.Client
}

// NewPomodoroRepository constructs the repository.
func NewPomodoroRepository(client *redis.Client) *PomodoroRepository {
	return &PomodoroRepository{client: client}
}

func pomodoroKey(userID, part string) string { return cache.Key("pomodoro", userID, part) }

// LoadTimer returns the stored timer or nil when the user has none yet.
func (r *PomodoroRepository) LoadTimer(ctx context.Context, userID string) (*pomodoro.Timer, error) {
	var timer pomodoro.Timer
	found, err := r.getJSON(ctx, pomodoroKey(userID, "timer"), &timer)
	if err != nil || !found {
		return nil, err
	}
	return &timer, nil
}

// LoadStats returns the stored aggregate, zero-valued when absent.
func (r *PomodoroRepository) LoadStats(ctx context.Context, userID string) (*pomodoro.Stats, error) {
	var stats pomodoro.Stats
	if _, err := r.getJSON(ctx, pomodoroKey(userID, "stats"), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// PomodoroChange is one mutation of a user's timer. Stats is nil when no
// phase completed.
type PomodoroChange struct {
	Timer        *pomodoro.Timer
	Sessions     []pomodoro.Session
	Stats        *pomodoro.Stats
	HistoryLimit int
}

// Commit writes the timer, new history entries and stats in one MULTI/EXEC
// so a completed phase is never stored without its session.
func (r *PomodoroRepository) Commit(ctx context.Context, userID string, change PomodoroChange) error {
	timer, err := json.Marshal(change.Timer)
	if err != nil {
		return fmt.Errorf("marshal pomodoro timer: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, pomodoroKey(userID, "timer"), timer, 0)
	if len(change.Sessions) > 0 {
		key := pomodoroKey(userID, "history")
		values := make([]interface{}, 0, len(change.Sessions))
		for _, s := range change.Sessions {
			payload, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal pomodoro session: %w", err)
			}
			values = append(values, payload)
		}
		pipe.LPush(ctx, key, values...)
		if change.HistoryLimit > 0 {
			pipe.LTrim(ctx, key, 0, int64(change.HistoryLimit-1))
		}
	}
	if change.Stats != nil {
		stats, err := json.Marshal(change.Stats)
		if err != nil {
			return fmt.Errorf("marshal pomodoro stats: %w", err)
		}
		pipe.Set(ctx, pomodoroKey(userID, "stats"), stats, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit pomodoro state: %w", err)
	}
	return nil
}

// History returns up to limit sessions, newest first.
func (r *PomodoroRepository) History(ctx context.Context, userID string, limit int) ([]pomodoro.Session, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := r.client.LRange(ctx, pomodoroKey(userID, "history"), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("load pomodoro history: %w", err)
	}
	sessions := make([]pomodoro.Session, 0, len(raw))
	for _, item := range raw {
		var s pomodoro.Session
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("decode pomodoro session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// ClearHistory drops the stored history and stats.
func (r *PomodoroRepository) ClearHistory(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, pomodoroKey(userID, "history"), pomodoroKey(userID, "stats")).Err(); err != nil {
		return fmt.Errorf("clear pomodoro history: %w", err)
	}
	return nil
}

func (r *PomodoroRepository) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
