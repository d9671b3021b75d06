package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the gateway, the ingest
// worker, and the provision command.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"`
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"`
	QueueURL      string `env:"QUEUE_URL"`

	// Reply cache. Optional: when RedisAddr is empty the gateway falls back
	// to a no-op cache.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL_SECONDS" envDefault:"600"`

	// Hosted assistant
	ReplyProvider       string `env:"REPLY_PROVIDER" envDefault:"openai"` // "openai" (hosted API) or "stub" (for testing)
	OpenAIKey           string `env:"OPENAI_API_KEY"`
	AssistantModel      string `env:"ASSISTANT_MODEL" envDefault:"gpt-4o"`
	AssistantName       string `env:"ASSISTANT_NAME" envDefault:"ADU Permit Chatbot Assistant"`
	AssistantID         string `env:"ASSISTANT_ID"`
	VectorStoreID       string `env:"VECTOR_STORE_ID"`
	VectorStoreName     string `env:"VECTOR_STORE_NAME" envDefault:"ADU Permit Vector Store"`
	MaxPromptTokens     int64  `env:"MAX_PROMPT_TOKENS" envDefault:"20000"`
	MaxCompletionTokens int64  `env:"MAX_COMPLETION_TOKENS" envDefault:"5000"`

	// Regulatory corpus on disk. The statewide handbook in the ordinances
	// directory takes precedence over individual city files.
	LettersDir        string `env:"LETTERS_DIR" envDefault:"data/Letters"`
	OrdinancesDir     string `env:"ORDINANCES_DIR" envDefault:"data/Ordinances"`
	StatewideHandbook string `env:"STATEWIDE_HANDBOOK" envDefault:"ADUHandbookUpdate.pdf"`
	MaxPDFSize        int64  `env:"MAX_PDF_SIZE" envDefault:"26214400"` // 25MB in bytes

	// Optional directory of YAML role profiles overriding the built-ins.
	RolesDir string `env:"ROLES_DIR"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
