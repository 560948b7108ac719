package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Ready2k/CatalAIst-sub004/internal/config"
	"github.com/Ready2k/CatalAIst-sub004/internal/engine"
	"github.com/Ready2k/CatalAIst-sub004/internal/llm"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
	"github.com/Ready2k/CatalAIst-sub004/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/catalaist/catalaist.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// createLLMProvider creates the LLM provider based on configuration. The one
// provider serves all three capabilities: classification, question
// generation, and attribute extraction.
func createLLMProvider() (*llm.Provider, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "openai" // default provider
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60 // requests per minute
	}

	// Get API key based on provider
	switch provider {
	case "openai":
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

		if cfg.Model == "" {
			cfg.Model = "gpt-4o"
		}

	case "anthropic":
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}

	return llm.NewProvider(cfg, slog.Default())
}

// pipelineConfig assembles the routing and interview configuration, with
// viper overrides on top of the defaults.
func pipelineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	if v := viper.GetFloat64("routing.auto_threshold"); v > 0 {
		cfg.Router.AutoThreshold = v
	}
	if v := viper.GetFloat64("routing.low_threshold"); v > 0 {
		cfg.Router.LowThreshold = v
	}
	if v := viper.GetStringSlice("routing.required_evidence"); len(v) > 0 {
		cfg.Router.RequiredEvidence = v
	}
	if v := viper.GetInt("interview.hard_limit"); v > 0 {
		cfg.Interview.HardLimit = v
	}
	if v := viper.GetInt("interview.soft_limit"); v > 0 {
		cfg.Interview.SoftLimit = v
	}

	return cfg
}

// buildEngine wires storage and the LLM provider into the pipeline engine.
func buildEngine(store service.Storage, provider *llm.Provider) *engine.Engine {
	return engine.NewWithConfig(store, provider, provider, provider, pipelineConfig())
}
