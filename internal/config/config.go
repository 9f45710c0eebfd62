package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Store     RemoteStoreConfig
	Generator GeneratorConfig
	Ai        AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	NoticeLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string // empty disables external event fan-out
	RedisURL           string
	NoticeFanout       bool // relay live notices across instances through Redis
	EventTopic         string
	WorkspaceTTL       time.Duration
	NoticeTTL          time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type CacheConfig struct {
	Backend string // "redis", "postgres" or "memory"
}

type RemoteStoreConfig struct {
	BaseURL string
	Timeout time.Duration
}

type GeneratorConfig struct {
	Provider string // "api" or "ollama"
	APIURL   string
	Timeout  time.Duration
}

type AIConfig struct {
	OllamaBaseURL string
	LLMProvider   string
	LLMModel      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			NoticeLogFilePath:  getEnv("NOTICE_LOG_FILE_PATH", "logs/notice.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			NoticeFanout:       getEnv("NOTICE_REDIS_FANOUT", "false") == "true",
			EventTopic:         getEnv("STRATEGY_EVENT_TOPIC", "STRATEGY_EVENTS"),
			WorkspaceTTL:       getEnvAsMinutes("WORKSPACE_TTL_MINUTES", 60),
			NoticeTTL:          getEnvAsMinutes("NOTICE_TTL_MINUTES", 1440),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "memory"),
		},
		Store: RemoteStoreConfig{
			BaseURL: getEnv("REMOTE_STORE_URL", "http://localhost:5000/api"),
			Timeout: getEnvAsSeconds("REMOTE_STORE_TIMEOUT_SECONDS", 15),
		},
		Generator: GeneratorConfig{
			Provider: getEnv("GENERATOR_PROVIDER", "api"),
			APIURL:   getEnv("ANALYSIS_API_URL", "http://localhost:5000/api"),
			Timeout:  getEnvAsSeconds("GENERATOR_TIMEOUT_SECONDS", 60),
		},
		Ai: AIConfig{
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
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

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

func getEnvAsMinutes(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Minute
}
