package llm

import (
	"context"
	"time"

	"github.com/jonathan/career-agent/internal/metrics"
)

// Client generates text for the stage workers. GenerateJSON returns the bare JSON value
// with any fences or preamble removed.
type Client interface {
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	Close() error
}

// NewClient creates the client for config.Provider. A nil config means Gemini defaults.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Provider == ProviderAnthropic {
		return NewAnthropicClient(config, apiKey)
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// usage is the token accounting a provider reports for one call.
type usage struct {
	input, output int64
}

// observe records one generation call in the llm metrics.
func observe(provider Provider, tier ModelTier, started time.Time, u usage, err error) {
	p, t := string(provider), string(tier)
	metrics.ModelLatency.WithLabelValues(p, t).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ModelRequests.WithLabelValues(p, t, "error").Inc()
		return
	}
	metrics.ModelRequests.WithLabelValues(p, t, "ok").Inc()
	if u.input > 0 {
		metrics.ModelTokens.WithLabelValues(p, t, "input").Add(float64(u.input))
	}
	if u.output > 0 {
		metrics.ModelTokens.WithLabelValues(p, t, "output").Add(float64(u.output))
	}
}
