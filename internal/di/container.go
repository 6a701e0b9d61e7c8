package di

import (
	"context"
	"fmt"
	"strings"

	"socflow/internal/application/port/input"
	"socflow/internal/application/port/output"
	"socflow/internal/application/service"
	"socflow/internal/infrastructure/catalog"
	"socflow/internal/infrastructure/env"
	"socflow/internal/infrastructure/llm/ollama"
	"socflow/internal/infrastructure/llm/openrouter"
	"socflow/internal/infrastructure/logger"
	sqlitelookup "socflow/internal/infrastructure/lookup/sqlite"
	"socflow/internal/infrastructure/metrics"
	"socflow/internal/infrastructure/prompts"
	"socflow/internal/infrastructure/store/memory"
	"socflow/internal/infrastructure/userinteraction"
	"socflow/internal/usecase/executor"
	"socflow/internal/usecase/intentfallback"
	"socflow/internal/usecase/orchestrator"
)

const (
	ProviderNone       = "none"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

type Container struct {
	Logger          output.LoggerPort
	Catalog         *service.TaskCatalog
	Lookup          *sqlitelookup.Provider
	Store           output.WorkflowStore
	Metrics         *metrics.Recorder
	LLM             output.LLMPort
	Engine          input.WorkflowEngine
	TaskExecutor    input.TaskExecutor
	UserInteraction output.UserInteractionPort
}

type Config struct {
	DBPath      string
	CatalogPath string

	LLMProvider      string
	OpenRouterAPIKey string
	OpenRouterModel  string
	OllamaServerURL  string
	OllamaModel      string
	IntentFallback   bool

	// Headless hosts (the HTTP server) get no console and run executions
	// without stage output.
	Headless bool

	Orchestrator orchestrator.Config
	Log          logger.Config
}

// ConfigFromEnv reads the container configuration, applying the documented
// defaults for anything unset.
func ConfigFromEnv(cfg output.ConfigPort) Config {
	logCfg := logger.DefaultConfig("socflow")
	logCfg.Dir = cfg.GetWithDefault(env.KeyLogDir, logCfg.Dir)
	logCfg.Level = cfg.GetWithDefault(env.KeyLogLevel, logCfg.Level)

	return Config{
		DBPath:           cfg.GetWithDefault(env.KeyDBPath, "socflow.db"),
		CatalogPath:      cfg.Get(env.KeyCatalogPath),
		LLMProvider:      strings.ToLower(cfg.GetWithDefault(env.KeyLLMProvider, ProviderNone)),
		OpenRouterAPIKey: cfg.Get(env.KeyOpenRouterAPIKey),
		OpenRouterModel:  cfg.Get(env.KeyOpenRouterModel),
		OllamaServerURL:  cfg.Get(env.KeyOllamaServerURL),
		OllamaModel:      cfg.Get(env.KeyOllamaModel),
		IntentFallback:   cfg.GetBool(env.KeyLLMIntentFallback, false),
		Orchestrator: orchestrator.Config{
			LookupLimit:     cfg.GetInt(env.KeyLookupLimit, 5),
			MaxSlotAttempts: cfg.GetInt(env.KeyMaxSlotAttempts, 0),
			IntentThreshold: cfg.GetFloat(env.KeyIntentThreshold, 0.7),
		},
		Log: logCfg,
	}
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log, err := logger.NewLoggerAdapter(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Container{Logger: log}
	if err := c.build(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, cfg Config) error {
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	c.Catalog = cat

	c.Lookup, err = sqlitelookup.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open lookup database: %w", err)
	}

	formatter, err := prompts.NewFormatter()
	if err != nil {
		return fmt.Errorf("failed to create formatter: %w", err)
	}

	c.LLM, err = newLLM(cfg, c.Logger)
	if err != nil {
		return err
	}

	c.Metrics = metrics.NewRecorder()
	store := memory.New()
	c.Store = store
	if !cfg.Headless {
		c.UserInteraction = userinteraction.NewConsoleUserInteraction()
	}

	engine := orchestrator.New(c.Catalog, c.Store, c.Lookup, formatter, c.Metrics, c.Logger, cfg.Orchestrator)
	if c.LLM != nil {
		c.TaskExecutor = executor.New(c.LLM, c.Catalog, formatter, c.Logger, c.UserInteraction).
			WithProgress(store)
		if cfg.IntentFallback {
			engine.WithIntentFallback(intentfallback.New(c.LLM, c.Catalog, formatter, c.Logger))
		}
	}
	c.Engine = engine

	c.Logger.Info("Container ready",
		"tasks", len(c.Catalog.Types()),
		"llmProvider", cfg.LLMProvider,
		"intentFallback", cfg.IntentFallback && c.LLM != nil,
		"db", cfg.DBPath)
	return nil
}

func loadCatalog(path string) (*service.TaskCatalog, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load task catalog: %w", err)
	}
	return cat, nil
}

func newLLM(cfg Config, log output.LoggerPort) (output.LLMPort, error) {
	switch cfg.LLMProvider {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" || cfg.OpenRouterModel == "" {
			return nil, fmt.Errorf("openrouter provider needs %s and %s", env.KeyOpenRouterAPIKey, env.KeyOpenRouterModel)
		}
		llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		llmCfg.Logger = log
		return openrouter.NewOpenRouterAdapter(llmCfg), nil
	case ProviderOllama:
		llm, err := ollama.NewOllamaAdapter(ollama.Config{
			ServerURL: cfg.OllamaServerURL,
			Model:     cfg.OllamaModel,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func (c *Container) Close() {
	if c.Lookup != nil {
		if err := c.Lookup.Close(); err != nil && c.Logger != nil {
			c.Logger.Warn("Failed to close lookup database", "error", err)
		}
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
