package main

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/config"
	"github.com/fyrsmithlabs/cadence/internal/logging"
	"github.com/fyrsmithlabs/cadence/internal/source"
)

// buildProviders returns one provider per source in canonical order, each
// evaluated the way its configured mode says.
func buildProviders(cfg config.SourcesConfig, logger *logging.Logger) ([]source.Provider, error) {
	heuristics := make(map[source.ID]source.Provider)
	for _, p := range source.Heuristics() {
		heuristics[p.ID()] = p
	}

	var model llms.Model
	providers := make([]source.Provider, 0, len(source.AllIDs))
	for _, id := range source.AllIDs {
		mode := cfg.ModeFor(string(id))
		switch mode {
		case config.SourceModeHTTP:
			p, err := source.NewHTTPProvider(id, source.HTTPConfig{
				Endpoint:   cfg.Endpoint,
				APIKey:     cfg.APIKey.Value(),
				Timeout:    cfg.Timeout.Duration(),
				RateLimit:  cfg.RateLimit,
				Burst:      cfg.Burst,
				MaxRetries: cfg.MaxRetries,
				Backoff:    cfg.Backoff.Duration(),
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case config.SourceModeLLM:
			if model == nil {
				m, err := source.NewOpenAIModel(source.LLMConfig{
					BaseURL: cfg.LLMBaseURL,
					Model:   cfg.LLMModel,
					APIKey:  cfg.LLMAPIKey.Value(),
				})
				if err != nil {
					return nil, err
				}
				model = m
			}
			providers = append(providers, source.NewLLMProvider(id, model))
		case config.SourceModeHeuristic:
			providers = append(providers, heuristics[id])
		default:
			return nil, fmt.Errorf("source %s: unknown mode %q", id, mode)
		}
		fields := []zap.Field{zap.String("source", string(id)), zap.String("mode", mode)}
		switch {
		case mode == config.SourceModeHTTP && cfg.APIKey.IsSet():
			fields = append(fields, zap.String("key_hint", cfg.APIKey.Hint()))
		case mode == config.SourceModeLLM && cfg.LLMAPIKey.IsSet():
			fields = append(fields, zap.String("key_hint", cfg.LLMAPIKey.Hint()))
		}
		logger.Debug(context.Background(), "source configured", fields...)
	}
	return providers, nil
}
