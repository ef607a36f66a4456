package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"medreport-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogFormat       string
	LogLevel        string
	CORSAllowOrigin []string

	DatabaseURL  string
	SessionStore string
	SessionTTL   time.Duration
	RedisURL     string

	LLMBaseURL         string
	LLMModel           string
	LLMChatModel       string
	LLMAPIKey          string
	LLMTemperature     float64
	LLMTimeout         time.Duration
	LLMRetryAttempts   int
	LLMRatePerSec      float64
	LLMBreakerFailures uint32

	SummaryCacheSize int
	PipelineTimeout  time.Duration
	MaxUploadBytes   int64
	UploadsPerMinute float64
}

const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

// Load reads configuration from the environment and an optional .env file.
func Load() Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)
	// a missing .env is the normal case outside local dev
	_ = v.ReadInConfig()

	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		LogLevel:        v.GetString("LOG_LEVEL"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),

		DatabaseURL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		SessionTTL:  time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
		RedisURL:    strings.TrimSpace(v.GetString("REDIS_URL")),

		LLMBaseURL:         v.GetString("LLM_BASE_URL"),
		LLMModel:           v.GetString("LLM_MODEL"),
		LLMChatModel:       v.GetString("LLM_CHAT_MODEL"),
		LLMAPIKey:          strings.TrimSpace(v.GetString("LLM_API_KEY")),
		LLMTemperature:     v.GetFloat64("LLM_TEMPERATURE"),
		LLMTimeout:         time.Duration(v.GetInt("LLM_TIMEOUT_SECONDS")) * time.Second,
		LLMRetryAttempts:   max(v.GetInt("LLM_RETRY_ATTEMPTS"), 0),
		LLMRatePerSec:      v.GetFloat64("LLM_RATE_PER_SEC"),
		LLMBreakerFailures: v.GetUint32("LLM_BREAKER_FAILURES"),

		SummaryCacheSize: v.GetInt("SUMMARY_CACHE_SIZE"),
		PipelineTimeout:  time.Duration(v.GetInt("PIPELINE_TIMEOUT_SECONDS")) * time.Second,
		MaxUploadBytes:   v.GetInt64("MAX_UPLOAD_BYTES"),
		UploadsPerMinute: v.GetFloat64("UPLOADS_PER_MINUTE"),
	}
	cfg.SessionStore = normalizeSessionStore(v.GetString("SESSION_STORE"), cfg.DatabaseURL)
	if cfg.LLMChatModel == "" {
		cfg.LLMChatModel = cfg.LLMModel
	}

	if env == "production" && cfg.SessionStore == SessionStorePostgres && cfg.DatabaseURL == "" {
		telemetry.Error("config.invalid", map[string]any{"error": "DATABASE_URL is required for the postgres session store"})
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("SESSION_STORE", "")
	v.SetDefault("SESSION_TTL_MINUTES", 24*60)
	v.SetDefault("LLM_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("LLM_MODEL", "deepseek/deepseek-r1-0528-qwen3-8b:free")
	v.SetDefault("LLM_CHAT_MODEL", "")
	v.SetDefault("LLM_TEMPERATURE", 0.3)
	v.SetDefault("LLM_TIMEOUT_SECONDS", 120)
	v.SetDefault("LLM_RETRY_ATTEMPTS", 0)
	v.SetDefault("LLM_RATE_PER_SEC", 2)
	v.SetDefault("LLM_BREAKER_FAILURES", 5)
	v.SetDefault("SUMMARY_CACHE_SIZE", 128)
	v.SetDefault("PIPELINE_TIMEOUT_SECONDS", 180)
	v.SetDefault("MAX_UPLOAD_BYTES", 20<<20)
	v.SetDefault("UPLOADS_PER_MINUTE", 6)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeSessionStore(raw string, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg", "postgresql":
		return SessionStorePostgres
	case "memory", "mem":
		return SessionStoreMemory
	}
	if databaseURL != "" {
		return SessionStorePostgres
	}
	return SessionStoreMemory
}
