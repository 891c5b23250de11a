package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// fakeModel is a scripted llms.Model.
type fakeModel struct {
	reply    string
	err      error
	lastMsgs []llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.lastMsgs = msgs
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}

func TestLLMProvider_ParsesFencedJSON(t *testing.T) {
	model := &fakeModel{reply: "Sure!\n```json\n{\"risk_scores\":{\"stress_load\":0.9},\"recommendation\":{\"state\":\"critical\"},\"rationale\":\"poor sleep\"}\n```"}
	p := NewLLMProvider(SourceStress, model)

	res := p.Evaluate(context.Background(), testContext("luteal", 22), nil)
	require.True(t, res.IsOk())
	assert.Equal(t, StressCritical, res.Opinion.Recommendation.String(KeyState))
	assert.Equal(t, 0.9, res.Opinion.RiskScores[ScoreStressLoad])

	require.Len(t, model.lastMsgs, 1)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.lastMsgs[0].Role)
	text, ok := model.lastMsgs[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "stress assessor")
	assert.Contains(t, text.Text, `"user_id":"u1"`)
}

func TestLLMProvider_AttachesImageForNutrition(t *testing.T) {
	model := &fakeModel{reply: `{"recommendation":{"tip":"more protein"}}`}
	p := NewLLMProvider(SourceNutrition, model)

	uc := testContext("follicular", 8)
	uc.Image = &Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}

	res := p.Evaluate(context.Background(), uc, nil)
	require.True(t, res.IsOk())
	require.Len(t, model.lastMsgs[0].Parts, 2)
	_, ok := model.lastMsgs[0].Parts[1].(llms.BinaryContent)
	assert.True(t, ok)
}

func TestLLMProvider_Failures(t *testing.T) {
	res := NewLLMProvider(SourceMetabolic, &fakeModel{reply: "I cannot help with that"}).
		Evaluate(context.Background(), testContext("luteal", 20), nil)
	assert.Equal(t, ReasonMalformed, res.Reason)

	res = NewLLMProvider(SourceMetabolic, &fakeModel{err: errors.New("connection reset")}).
		Evaluate(context.Background(), testContext("luteal", 20), nil)
	assert.Equal(t, ReasonNetwork, res.Reason)
	assert.ErrorIs(t, res.Err, ErrSourceUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = NewLLMProvider(SourceMetabolic, &fakeModel{err: context.Canceled}).
		Evaluate(ctx, testContext("luteal", 20), nil)
	assert.Equal(t, ReasonTimeout, res.Reason)
}

func TestNewOpenAIModel_RequiresKey(t *testing.T) {
	_, err := NewOpenAIModel(LLMConfig{})
	require.Error(t, err)
}
