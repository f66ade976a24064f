package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultFallbackReply is returned whenever the language model cannot be
// reached or produces nothing usable.
const DefaultFallbackReply = "I apologize, but I encountered an error processing your request. Please try again."

type Config struct {
	Port          string
	AllowedOrigin string
	// OpenAI
	OpenAIAPIKey string
	Model        string
	EmbedModel   string
	// Qdrant vector index
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	SearchTopK       int
	// Sessions
	SessionBackend  string // "memory" or "redis"
	SessionMaxTurns int
	RedisAddr       string
	RedisSessionTTL time.Duration
	// Optional Postgres transcript log
	DatabaseURL string
	// Prompt spec files
	PromptsDir string
	// Canned reply for degraded responses
	FallbackReply string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:             getEnvDefault("PORT", "8080"),
		AllowedOrigin:    getEnvDefault("ALLOWED_ORIGIN", "*"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:            getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		EmbedModel:       getEnvDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		QdrantURL:        os.Getenv("QDRANT_URL"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: getEnvDefault("QDRANT_COLLECTION", "jhimki-products"),
		SearchTopK:       getEnvIntDefault("SEARCH_TOP_K", 10),
		SessionBackend:   getEnvDefault("SESSION_BACKEND", "memory"),
		SessionMaxTurns:  getEnvIntDefault("SESSION_MAX_TURNS", 40),
		RedisAddr:        getEnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisSessionTTL:  getEnvDurationDefault("REDIS_SESSION_TTL", 24*time.Hour),
		DatabaseURL:      os.Getenv("DB_URL"),
		PromptsDir:       getEnvDefault("PROMPTS_DIR", "./prompts"),
		FallbackReply:    getEnvDefault("FALLBACK_REPLY", DefaultFallbackReply),
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; API calls will fail until provided")
	}
	if cfg.QdrantURL == "" {
		log.Println("warning: QDRANT_URL is not set; product search will be unavailable")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return def
}
