package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 50, cfg.Papers.FetchLimit)
	assert.Equal(t, 9, cfg.Papers.PageSize)
	assert.Equal(t, 4, cfg.Pomodoro.LongBreakEvery)
	assert.Equal(t, 25*time.Minute, cfg.Pomodoro.Work)
	assert.Equal(t, "/storage", cfg.Storage.PublicPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PAPERS_FETCH_LIMIT", "20")
	t.Setenv("QUIZ_API_URL", "http://quiz.local/api/")
	t.Setenv("POMODORO_WORK", "50m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Papers.FetchLimit)
	assert.Equal(t, "http://quiz.local/api", cfg.Quiz.APIURL)
	assert.Equal(t, 50*time.Minute, cfg.Pomodoro.Work)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}
