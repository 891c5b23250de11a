package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/cadence/internal/config"
)

func encode(t *testing.T, enc zapcore.Encoder, fields ...zap.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "msg", Time: time.Unix(0, 0)}, fields)
	require.NoError(t, err)
	defer buf.Free()
	return buf.String()
}

func TestRedactingEncoder(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	out := encode(t, enc,
		zap.String("api_key", "sk-abcdef123456"),
		zap.String("note", "Authorization: Bearer abc.def"),
		zap.String("user_id", "u_42"),
		zap.Any("token", map[string]string{"v": "x"}),
	)

	assert.NotContains(t, out, "sk-abcdef123456")
	assert.NotContains(t, out, "abc.def")
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)
	assert.Contains(t, out, `"note":"[REDACTED:pattern]"`)
	assert.Contains(t, out, `"token":"[REDACTED]"`)
	assert.Contains(t, out, `"user_id":"u_42"`)
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	clone := enc.Clone()
	clone.AddString("password", "hunter2")
	out := encode(t, clone)
	assert.NotContains(t, out, "hunter2")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{})
	require.NoError(t, err)
	assert.Contains(t, encode(t, enc, zap.String("api_key", "visible")), "visible")
}

func TestRedactingEncoder_BadPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: true, Patterns: []string{"("}})
	assert.Error(t, err)
}

func TestSecretField(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(t.Context(), "configured", Secret("llm_key", config.Secret("sk-live-0000")))
	tl.AssertField(t, "configured", "llm_key", "[REDACTED:12]")
}
