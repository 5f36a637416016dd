package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Papers   PapersConfig
	Notices  NoticesConfig
	Avatars  AvatarsConfig
	Notes    NotesConfig
	Quiz     QuizConfig
	Pomodoro PomodoroConfig
	Cleanup  CleanupConfig
	Exports  ExportsConfig
}

// DatabaseConfig locates PostgreSQL. URL, when set, wins over the
// individual fields.
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnectTries int
}

// RedisConfig locates Redis. URL, when set, wins over the individual fields.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles Redis-backed response caching.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// StorageConfig describes the file bucket and its public/signed URLs.
type StorageConfig struct {
	Dir             string
	PublicURL       string
	PublicPath      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// PapersConfig bounds paper uploads and listing.
type PapersConfig struct {
	MaxFileSizeBytes int64
	PageSize         int
	FetchLimit       int
	CacheTTL         time.Duration
}

// NoticesConfig bounds notice uploads.
type NoticesConfig struct {
	MaxFileSizeBytes int64
}

// AvatarsConfig bounds profile image uploads.
type AvatarsConfig struct {
	MaxFileSizeBytes int64
}

// NotesConfig points at the static chapter tree.
type NotesConfig struct {
	Dir       string
	URLPrefix string
	CacheTTL  time.Duration
}

// QuizConfig configures the third-party trivia provider.
type QuizConfig struct {
	APIURL             string
	APIKey             string
	Timeout            time.Duration
	SessionTTL         time.Duration
	SecondsPerQuestion int
}

// PomodoroConfig holds default timer settings for new users.
type PomodoroConfig struct {
	Work           time.Duration
	ShortBreak     time.Duration
	LongBreak      time.Duration
	LongBreakEvery int
	HistoryLimit   int
}

// CleanupConfig sizes the storage cleanup worker pool.
type CleanupConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportsConfig gates catalogue exports.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectTries: v.GetInt("DB_CONNECT_TRIES"),
	}

	cfg.Redis = RedisConfig{
		URL:      v.GetString("REDIS_URL"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		DefaultTTL: parseDuration(v.GetString("CACHE_DEFAULT_TTL"), 5*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Dir:             v.GetString("STORAGE_DIR"),
		PublicURL:       strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
		PublicPath:      v.GetString("STORAGE_PUBLIC_PATH"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.Papers = PapersConfig{
		MaxFileSizeBytes: positiveInt64(v.GetInt64("PAPERS_MAX_FILE_SIZE"), 20*1024*1024),
		PageSize:         v.GetInt("PAPERS_PAGE_SIZE"),
		FetchLimit:       v.GetInt("PAPERS_FETCH_LIMIT"),
		CacheTTL:         parseDuration(v.GetString("PAPERS_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Notices = NoticesConfig{
		MaxFileSizeBytes: positiveInt64(v.GetInt64("NOTICES_MAX_FILE_SIZE"), 10*1024*1024),
	}

	cfg.Avatars = AvatarsConfig{
		MaxFileSizeBytes: positiveInt64(v.GetInt64("AVATARS_MAX_FILE_SIZE"), 2*1024*1024),
	}

	cfg.Notes = NotesConfig{
		Dir:       v.GetString("NOTES_DIR"),
		URLPrefix: v.GetString("NOTES_URL_PREFIX"),
		CacheTTL:  parseDuration(v.GetString("NOTES_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Quiz = QuizConfig{
		APIURL:             strings.TrimRight(v.GetString("QUIZ_API_URL"), "/"),
		APIKey:             v.GetString("QUIZ_API_KEY"),
		Timeout:            parseDuration(v.GetString("QUIZ_TIMEOUT"), 10*time.Second),
		SessionTTL:         parseDuration(v.GetString("QUIZ_SESSION_TTL"), time.Hour),
		SecondsPerQuestion: v.GetInt("QUIZ_SECONDS_PER_QUESTION"),
	}

	cfg.Pomodoro = PomodoroConfig{
		Work:           parseDuration(v.GetString("POMODORO_WORK"), 25*time.Minute),
		ShortBreak:     parseDuration(v.GetString("POMODORO_SHORT_BREAK"), 5*time.Minute),
		LongBreak:      parseDuration(v.GetString("POMODORO_LONG_BREAK"), 15*time.Minute),
		LongBreakEvery: v.GetInt("POMODORO_LONG_BREAK_EVERY"),
		HistoryLimit:   v.GetInt("POMODORO_HISTORY_LIMIT"),
	}

	cfg.Cleanup = CleanupConfig{
		Workers:    v.GetInt("CLEANUP_WORKERS"),
		MaxRetries: v.GetInt("CLEANUP_RETRIES"),
		RetryDelay: parseDuration(v.GetString("CLEANUP_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studyhub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_TRIES", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_DEFAULT_TTL", "5m")

	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("STORAGE_PUBLIC_PATH", "/storage")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "15m")

	v.SetDefault("PAPERS_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("PAPERS_PAGE_SIZE", 9)
	v.SetDefault("PAPERS_FETCH_LIMIT", 50)
	v.SetDefault("PAPERS_CACHE_TTL", "2m")
	v.SetDefault("NOTICES_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("AVATARS_MAX_FILE_SIZE", 2*1024*1024)

	v.SetDefault("NOTES_DIR", "./public/notes")
	v.SetDefault("NOTES_URL_PREFIX", "/notes")
	v.SetDefault("NOTES_CACHE_TTL", "10m")

	v.SetDefault("QUIZ_API_URL", "https://quizapi.io/api/v1")
	v.SetDefault("QUIZ_API_KEY", "")
	v.SetDefault("QUIZ_TIMEOUT", "10s")
	v.SetDefault("QUIZ_SESSION_TTL", "1h")
	v.SetDefault("QUIZ_SECONDS_PER_QUESTION", 30)

	v.SetDefault("POMODORO_WORK", "25m")
	v.SetDefault("POMODORO_SHORT_BREAK", "5m")
	v.SetDefault("POMODORO_LONG_BREAK", "15m")
	v.SetDefault("POMODORO_LONG_BREAK_EVERY", 4)
	v.SetDefault("POMODORO_HISTORY_LIMIT", 100)

	v.SetDefault("CLEANUP_WORKERS", 2)
	v.SetDefault("CLEANUP_RETRIES", 3)
	v.SetDefault("CLEANUP_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_EXPORTS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
