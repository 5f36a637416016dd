package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/pkg/cache"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type memoryCacheStore struct {
	values   map[string][]byte
	counters map[string]int64
}

func newMemoryCacheStore() *memoryCacheStore {
	return &memoryCacheStore{values: map[string][]byte{}, counters: map[string]int64{}}
}

func (m *memoryCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	for key := range m.counters {
		if strings.HasPrefix(key, prefix) {
			delete(m.counters, key)
		}
	}
	return nil
}

func (m *memoryCacheStore) Counter(ctx context.Context, key string) (int64, error) {
	return m.counters[key], nil
}

func (m *memoryCacheStore) Incr(ctx context.Context, key string) (int64, error) {
	m.counters[key]++
	return m.counters[key], nil
}

func TestCacheServiceInvalidateBumpsGeneration(t *testing.T) {
	store := newMemoryCacheStore()
	svc := NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	gen, err := svc.Generation(ctx, "notices")
	require.NoError(t, err)
	assert.EqualValues(t, 0, gen)

	require.NoError(t, svc.Set(ctx, cache.Key("notices", "list", "0"), []string{"exam schedule"}, 0))
	require.NoError(t, svc.Invalidate(ctx, "notices"))
	require.NoError(t, svc.Invalidate(ctx, "notices"))

	gen, err = svc.Generation(ctx, "notices")
	require.NoError(t, err)
	assert.EqualValues(t, 2, gen)

	var cached []string
	hit, err := svc.Get(ctx, cache.Key("notices", "list", "0"), &cached)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRememberServesSecondReadFromCache(t *testing.T) {
	svc := NewCacheService(newMemoryCacheStore(), nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	loads := 0
	load := func() ([]string, error) {
		loads++
		return []string{"ch1", "ch2"}, nil
	}

	first, hit, err := remember(ctx, svc, "k", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := remember(ctx, svc, "k", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)

	var disabled *CacheService
	_, hit, err = remember(ctx, disabled, "k", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, loads)
}
