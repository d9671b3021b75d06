package app

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/bluo42/adu-chatbot/internal/assistant"
	"github.com/bluo42/adu-chatbot/internal/cache"
	"github.com/bluo42/adu-chatbot/internal/config"
	"github.com/bluo42/adu-chatbot/internal/logger"
	"github.com/bluo42/adu-chatbot/internal/queue"
	"github.com/bluo42/adu-chatbot/internal/roles"
	"github.com/bluo42/adu-chatbot/internal/store"
)

// Deps bundles runtime dependencies for the gateway.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.Store
	Queue     queue.Queue
	Assistant assistant.Client
	Cache     cache.Cache
	Roles     roles.Set
}

// IngestDeps bundles runtime dependencies for the ingest worker.
type IngestDeps struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.Store
	Queue     queue.Queue
	Assistant assistant.Client
	Roles     roles.Set
}

// ProvisionDeps bundles runtime dependencies for the provision command.
type ProvisionDeps struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.Store
	Assistant assistant.Client
	Roles     roles.Set
}

// Build loads env, config, and the gateway's components.
func Build() (Deps, error) {
	cfg, log := loadConfig()

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	client, err := buildAssistant(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize assistant client: %w", err)
	}
	roleSet, err := roles.LoadDir(cfg.RolesDir)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load role profiles: %w", err)
	}
	return Deps{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Queue:     q,
		Assistant: client,
		Cache:     buildCache(cfg, log),
		Roles:     roleSet,
	}, nil
}

// BuildIngest loads env, config, and the ingest worker's components.
func BuildIngest() (IngestDeps, error) {
	cfg, log := loadConfig()

	st, err := buildStore(cfg, log)
	if err != nil {
		return IngestDeps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return IngestDeps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	client, err := buildAssistant(cfg, log)
	if err != nil {
		return IngestDeps{}, fmt.Errorf("failed to initialize assistant client: %w", err)
	}
	roleSet, err := roles.LoadDir(cfg.RolesDir)
	if err != nil {
		return IngestDeps{}, fmt.Errorf("failed to load role profiles: %w", err)
	}
	return IngestDeps{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Queue:     q,
		Assistant: client,
		Roles:     roleSet,
	}, nil
}

// BuildProvision loads env, config, and the provision command's components.
func BuildProvision() (ProvisionDeps, error) {
	cfg, log := loadConfig()

	st, err := buildStore(cfg, log)
	if err != nil {
		return ProvisionDeps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	client, err := buildAssistant(cfg, log)
	if err != nil {
		return ProvisionDeps{}, fmt.Errorf("failed to initialize assistant client: %w", err)
	}
	roleSet, err := roles.LoadDir(cfg.RolesDir)
	if err != nil {
		return ProvisionDeps{}, fmt.Errorf("failed to load role profiles: %w", err)
	}
	return ProvisionDeps{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Assistant: client,
		Roles:     roleSet,
	}, nil
}

func loadConfig() (config.Config, *slog.Logger) {
	// A missing .env is fine; containers inject env vars directly.
	_ = godotenv.Load()
	cfg := config.Load()
	return cfg, logger.New(cfg.LogLevel)
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid option: postgres)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

func buildAssistant(cfg config.Config, log *slog.Logger) (assistant.Client, error) {
	switch cfg.ReplyProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when REPLY_PROVIDER=openai")
		}
		client, err := assistant.NewOpenAIClient(cfg.OpenAIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI assistant client", "model", cfg.AssistantModel)
		return client, nil
	case "stub":
		log.Warn("using stub assistant client; replies are canned")
		return assistant.NewStubClient(), nil
	default:
		return nil, fmt.Errorf("invalid REPLY_PROVIDER: %s (valid options: openai, stub)", cfg.ReplyProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; reply cache disabled")
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable; falling back to no-op cache", "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis reply cache", "addr", cfg.RedisAddr)
	return c
}
