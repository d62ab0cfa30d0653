package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	ThumbnailDir       string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	// PasswordHash is the bcrypt hash of the shared access password.
	// If empty, Password is hashed at startup (development convenience).
	PasswordHash string
	Password     string
	JWTSecret    string
	CookieName   string
	SessionTTL   time.Duration
}

type AIConfig struct {
	LLMProvider        string // "ollama" or "huggingface"
	LLMModel           string
	OllamaBaseURL      string
	HuggingFaceBaseURL string
	HuggingFaceAPIKey  string
}

type PipelineConfig struct {
	// JobTopic is the watermill topic carrying background pipeline jobs.
	JobTopic string
	// UpdateStagger spaces out fan-out re-extraction jobs so a schema
	// evolution does not slam the completion service.
	UpdateStagger time.Duration
	// LeaseTTL bounds how long a widget/conversation update lease is held.
	LeaseTTL time.Duration
	// TypeFields is the ranked list of candidate discriminator fields used
	// when matching widget data items (first match wins).
	TypeFields []string
	// HiddenBlockMarker begins the non-user-visible structured block inside
	// a streamed completion.
	HiddenBlockMarker string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			ThumbnailDir:       getEnv("THUMBNAIL_DIR", "uploads/thumbnails"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			PasswordHash: getEnv("ACCESS_PASSWORD_HASH", ""),
			Password:     getEnv("ACCESS_PASSWORD", ""),
			JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
			CookieName:   getEnv("AUTH_COOKIE_NAME", "wc_session"),
			SessionTTL:   getEnvAsDuration("AUTH_SESSION_TTL", 30*24*time.Hour),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceBaseURL: getEnv("HF_BASE_URL", "https://router.huggingface.co/v1"),
			HuggingFaceAPIKey:  getEnv("HF_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			JobTopic:          getEnv("PIPELINE_JOB_TOPIC", "PIPELINE_JOBS"),
			UpdateStagger:     getEnvAsDuration("PIPELINE_UPDATE_STAGGER", 2*time.Second),
			LeaseTTL:          getEnvAsDuration("PIPELINE_LEASE_TTL", 5*time.Minute),
			TypeFields:        getEnvAsList("PIPELINE_TYPE_FIELDS", []string{"type", "category", "meal", "name"}),
			HiddenBlockMarker: getEnv("PIPELINE_HIDDEN_MARKER", "```widget-data"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
