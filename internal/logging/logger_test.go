package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/cadence/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	require.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	cfg.Stdout = false
	_, err = NewLogger(cfg, nil)
	assert.Error(t, err, "otel only without a provider has no output")
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LoggingConfig{Level: "trace", Format: "console", Sampling: false})
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.False(t, cfg.Sampling.Enabled)

	_, err = FromSettings(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "u_42")

	tl.Info(ctx, "decision served", zap.Bool("cached", true))

	tl.AssertLogged(t, zapcore.InfoLevel, "decision served")
	tl.AssertField(t, "decision served", "trace_id", traceID.String())
	tl.AssertField(t, "decision served", "request.id", "req-1")
	tl.AssertField(t, "decision served", "user.id", "u_42")
	tl.AssertField(t, "decision served", "cached", true)
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestWithUserID_Truncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	ctx := WithUserID(context.Background(), string(long))
	assert.Len(t, UserIDFromContext(ctx), maxIDLen)
}

func TestFromContext(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))

	nop := FromContext(context.Background())
	require.NotNil(t, nop)
	nop.Info(ctx, "dropped")
}

func TestChildLoggers(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Named("schedule").With(zap.String("component", "service"))
	child.Warn(context.Background(), "plan conflict")

	entries := tl.FilterMessage("plan conflict").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "schedule", entries[0].LoggerName)
	assert.Equal(t, "service", entries[0].ContextMap()["component"])
}

func TestLevels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()
	tl.Trace(ctx, "t")
	tl.Debug(ctx, "d")
	tl.Error(ctx, "e")
	tl.AssertLogged(t, TraceLevel, "t")
	tl.AssertLogged(t, zapcore.DebugLevel, "d")
	tl.AssertLogged(t, zapcore.ErrorLevel, "e")
	tl.AssertNotLogged(t, zapcore.WarnLevel, "e")

	tl.Reset()
	assert.Empty(t, tl.All())

	lvl, err := LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)
}

func TestSampling_ErrorsNeverDropped(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    time.Minute,
		Levels: map[zapcore.Level]LevelSampling{
			zapcore.InfoLevel: {Initial: 2},
		},
	})
	z := zap.New(sampled)

	for i := 0; i < 10; i++ {
		z.Info("same info")
		z.Error("same error")
		z.Warn("same warn")
	}

	assert.Equal(t, 2, observed.FilterMessage("same info").Len())
	assert.Equal(t, 10, observed.FilterMessage("same error").Len())
	assert.Equal(t, 10, observed.FilterMessage("same warn").Len(), "unsampled levels pass")
}

func TestSampling_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}
