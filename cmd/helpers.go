package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/insightloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/insightloom/internal/config"
	"github.com/KaramelBytes/insightloom/internal/dashboard"
	"github.com/KaramelBytes/insightloom/internal/forecast"
	"github.com/KaramelBytes/insightloom/internal/store"
)

// settings returns the loaded config or an empty one when loading failed.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{}
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	c := settings()
	if c.DataDir != "" {
		return c.DBPath(), nil
	}
	dir, err := cfgpkg.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dashboards.db"), nil
}

func openStore() (*store.Store, error) {
	path, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	return store.Open(path, logger)
}

// loadDashboard opens the store and loads key; the caller closes the store.
func loadDashboard(ctx context.Context, key string) (*store.Store, *dashboard.Dashboard, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	d, err := st.Load(ctx, key)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("dashboard %q not found. Run 'insightloom dashboards' to list saved dashboards", key)
		}
		return nil, nil, err
	}
	return st, d, nil
}

type serviceOptions struct {
	Runtime     ai.Runtime
	Model       string
	Engine      *forecast.Engine
	ChatTimeout time.Duration
	MaxTokens   int
	Temperature *float64
	PromptLimit int
}

func newService(opts serviceOptions) *dashboard.Service {
	c := settings()
	timeout := opts.ChatTimeout
	if timeout <= 0 && c.ChatTimeoutSec > 0 {
		timeout = time.Duration(c.ChatTimeoutSec) * time.Second
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.MaxTokens
	}
	temp := opts.Temperature
	if temp == nil && cfg != nil {
		temp = &cfg.Temperature
	}
	return dashboard.New(dashboard.Options{
		Logger:      logger,
		Runtime:     opts.Runtime,
		Model:       opts.Model,
		Engine:      opts.Engine,
		SampleRows:  c.SampleRows,
		ChatTimeout: timeout,
		MaxTokens:   maxTokens,
		Temperature: temp,
		PromptLimit: opts.PromptLimit,
	})
}

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
}

// buildRuntime resolves provider, model and credentials from flags, env and config.
func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if c.HTTPTimeoutSec > 0 {
		httpTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
	}
	if c.RetryMaxAttempts > 0 {
		retryMax = c.RetryMaxAttempts
	}
	if c.RetryBaseDelayMs > 0 {
		baseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
	}
	if c.RetryMaxDelayMs > 0 {
		maxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" {
		providerName = strings.ToLower(c.DefaultProvider)
	}
	switch providerName {
	case "":
		providerName = ai.ProviderOpenRouter
	case "local":
		providerName = ai.ProviderOllama
	case "google":
		providerName = ai.ProviderGemini
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
	switch providerName {
	case ai.ProviderOpenRouter:
		rc.APIKey = c.APIKey
		if rc.APIKey == "" {
			rc.APIKey = os.Getenv("OPENROUTER_API_KEY")
		}
	case ai.ProviderGemini:
		rc.APIKey = c.GeminiAPIKey
		if rc.APIKey == "" {
			rc.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
	}

	model := strings.TrimSpace(opts.ModelFlag)
	if model == "" && c.DefaultModel != "" && strings.EqualFold(c.DefaultProvider, providerName) {
		model = c.DefaultModel
	}
	if model == "" {
		model, _ = ai.DefaultModel(providerName)
	}

	rt, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, model, err
	}
	return rt, providerName, model, nil
}

// chatErrorHint maps runtime failures to actionable messages.
func chatErrorHint(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("the model did not answer in time. Raise --timeout-sec or config 'chat_timeout_sec': %w", err)
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set INSIGHTLOOM_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		if providerName == ai.ProviderGemini {
			return fmt.Errorf("authentication failed: set GEMINI_API_KEY or add gemini_api_key in config (~/.insightloom/config.yaml): %w", err)
		}
		return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.insightloom/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name or pass --model: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a smaller --prompt-limit or --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return fmt.Errorf("chat failed: %w", err)
	}
}
