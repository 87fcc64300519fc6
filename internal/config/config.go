package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Keys       APIKeys
	Ai         AIConfig
	Generation GenerationConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini     string
	EmbedChunksTopic string
	GenerationTopic  string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3.2", "gemini-2.0-flash"
}

// GenerationConfig tunes the study-card pipeline. Every knob has a production
// default so an empty environment still runs.
type GenerationConfig struct {
	Concurrency        int
	TopK               int
	MinChunks          int
	TargetCards        int
	MaxTokensPerChunk  int
	MaxSecondsPerChunk float64
	DedupeThreshold    float64
	CallTimeoutSeconds int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:     getEnv("GOOGLE_GEMINI_API_KEY", ""),
			EmbedChunksTopic: getEnv("EMBED_CHUNKS_TOPIC_NAME", "EMBED_CHUNKS"),
			GenerationTopic:  getEnv("GENERATION_JOBS_TOPIC_NAME", "GENERATION_JOBS"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3.2"),
		},
		Generation: GenerationConfig{
			Concurrency:        getEnvAsInt("GENERATION_CONCURRENCY", 4),
			TopK:               getEnvAsInt("GENERATION_TOP_K", 12),
			MinChunks:          getEnvAsInt("GENERATION_MIN_CHUNKS", 4),
			TargetCards:        getEnvAsInt("GENERATION_TARGET_CARDS", 10),
			MaxTokensPerChunk:  getEnvAsInt("CHUNK_MAX_TOKENS", 800),
			MaxSecondsPerChunk: getEnvAsFloat("CHUNK_MAX_SECONDS", 90),
			DedupeThreshold:    getEnvAsFloat("DEDUPE_THRESHOLD", 0.85),
			CallTimeoutSeconds: getEnvAsInt("LLM_CALL_TIMEOUT_SECONDS", 90),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
