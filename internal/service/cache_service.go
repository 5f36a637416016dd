package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/pkg/cache"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

// CacheStore persists JSON payloads by key.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService fronts the read-mostly listings (papers, notices, notes).
// A nil or disabled service behaves as a permanent miss.
type CacheService struct {
	store      CacheStore
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(store CacheStore, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.store != nil
}

// Get loads key into dest and reports whether it was a hit. Store failures
// count as misses and are returned so callers can decide to ignore them.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.store.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.store.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Generation returns the namespace's current generation. Keys built from it
// go dark once Invalidate bumps the counter, so a listing loaded before an
// invalidation and written after it is never served.
func (s *CacheService) Generation(ctx context.Context, namespace string) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	gen, err := s.store.Counter(ctx, generationKey(namespace))
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.String("namespace", namespace), zap.Error(err))
		return 0, err
	}
	return gen, nil
}

// Invalidate bumps the namespace generation and drops every key in a
// namespace such as "papers" or "notices".
func (s *CacheService) Invalidate(ctx context.Context, namespace string) error {
	if !s.Enabled() {
		return nil
	}
	_, genErr := s.store.Incr(ctx, generationKey(namespace))
	if genErr != nil {
		s.logger.Warn("cache generation bump failed", zap.String("namespace", namespace), zap.Error(genErr))
	}
	pattern := cache.Key(namespace, "*")
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("namespace", namespace), zap.Error(err))
		return err
	}
	return genErr
}

// generationKey sits outside the namespace so DeleteByPattern keeps it.
func generationKey(namespace string) string {
	return cache.Key("gen", namespace)
}

// remember serves key from c when present, otherwise calls load and caches
// its result. The boolean reports a hit. Cache errors never fail the read.
func remember[T any](ctx context.Context, c *CacheService, key string, ttl time.Duration, load func() (T, error)) (T, bool, error) {
	var cached T
	if hit, err := c.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}
	value, err := load()
	if err != nil {
		var zero T
		return zero, false, err
	}
	_ = c.Set(ctx, key, value, ttl)
	return value, false, nil
}
