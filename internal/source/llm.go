package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const (
	defaultLLMTemperature = 0.2
	defaultLLMMaxTokens   = 512
)

// LLMConfig configures the OpenAI-compatible model behind LLMProvider.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// NewOpenAIModel builds a langchaingo model for an OpenAI-compatible API.
func NewOpenAIModel(cfg LLMConfig) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm source: api key required")
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llm source: %w", err)
	}
	return llm, nil
}

// LLMProvider asks a language model for one source's opinion.
//
// The reply is decoded tolerantly. Numbers are clamped and safety rules are
// re-applied downstream whatever the model says.
type LLMProvider struct {
	id    ID
	model llms.Model
	now   func() time.Time
}

// NewLLMProvider creates a provider for source id backed by model.
func NewLLMProvider(id ID, model llms.Model) *LLMProvider {
	return &LLMProvider{id: id, model: model, now: time.Now}
}

// ID returns the source this provider answers for.
func (p *LLMProvider) ID() ID { return p.id }

// Evaluate prompts the model and decodes the JSON in its reply.
func (p *LLMProvider) Evaluate(ctx context.Context, uc UserContext, logs []Log) Result {
	prompt, err := buildPrompt(p.id, uc, logs)
	if err != nil {
		return Unavailable(p.id, ReasonNetwork, err)
	}

	parts := []llms.ContentPart{llms.TextContent{Text: prompt}}
	if uc.Image != nil && p.id == SourceNutrition {
		parts = append(parts, llms.BinaryPart(uc.Image.MIMEType, uc.Image.Data))
	}
	msgs := []llms.MessageContent{{Role: schema.ChatMessageTypeHuman, Parts: parts}}

	resp, err := p.model.GenerateContent(ctx, msgs,
		llms.WithTemperature(defaultLLMTemperature),
		llms.WithMaxTokens(defaultLLMMaxTokens),
	)
	if err != nil {
		return Unavailable(p.id, classify(ctx, err), err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Unavailable(p.id, ReasonMalformed, errors.New("empty response from model"))
	}

	op, err := Decode(p.id, ExtractJSON(resp.Choices[0].Content), p.now())
	if err != nil {
		return Unavailable(p.id, ReasonMalformed, err)
	}
	return Ok(op)
}

// schemaHints describe the expected reply per source.
var schemaHints = map[ID]string{
	SourceCycle:      `"risk_scores": {"symptom_load": 0..1}, "recommendation": {"phase": string, "energy": string}`,
	SourceStress:     `"risk_scores": {"stress_load": 0..1}, "recommendation": {"state": "low"|"moderate"|"elevated"|"critical"}`,
	SourceFatigue:    `"risk_scores": {"fatigue": 0..1}, "recommendation": {"level": "low"|"moderate"|"high"}`,
	SourceMetabolic:  `"risk_scores": {"fuel_risk": 0..1, "carb_need": 0..1}`,
	SourcePsychology: `"risk_scores": {"adherence_risk": 0..1}, "recommendation": {"motivation_state": "low"|"stable"|"high", "tone": "supportive"|"directive"|"educational"}`,
	SourceWorkout:    `"recommendation": {"workout_type": string, "title": string, "intensity": "low"|"moderate"|"high", "duration_min": int, "plan_action": "keep"|"generateNew"}`,
	SourceNutrition:  `"recommendation": {"tip": string, "calories": int, "calorie_min": int, "calorie_max": int, "protein_pct": 0..1, "carbs_pct": 0..1, "fats_pct": 0..1}`,
}

func buildPrompt(id ID, uc UserContext, logs []Log) (string, error) {
	// Images travel as a separate content part.
	uc.Image = nil
	ctxJSON, err := json.Marshal(struct {
		Context UserContext `json:"context"`
		Logs    []Log       `json:"logs"`
	}{uc, logs})
	if err != nil {
		return "", fmt.Errorf("encoding prompt context: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s assessor in a cycle-aware training planner.\n", id)
	b.WriteString("Assess the user below and reply with one JSON object only, shaped as:\n{")
	b.WriteString(schemaHints[id])
	b.WriteString(`, "rationale": string}`)
	b.WriteString("\n\nUser:\n")
	b.Write(ctxJSON)
	return b.String(), nil
}
