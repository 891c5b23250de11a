package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger whose entries are kept in memory, at every level
// down to TraceLevel, for assertions in tests.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger creates a recording logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{Logger: &Logger{zap: zap.New(core)}, logs: logs}
}

// All returns every recorded entry in order.
func (t *TestLogger) All() []observer.LoggedEntry { return t.logs.All() }

// FilterMessage returns entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessageSnippet(msg)
}

// ForUser returns entries carrying the user_id context field.
func (t *TestLogger) ForUser(userID string) []observer.LoggedEntry {
	return t.logs.FilterField(zap.String(fieldUserID, userID)).All()
}

// Reset drops everything recorded so far.
func (t *TestLogger) Reset() { t.logs.TakeAll() }

func (t *TestLogger) find(level zapcore.Level, snippet string) (observer.LoggedEntry, bool) {
	for _, e := range t.logs.FilterLevelExact(level).All() {
		if strings.Contains(e.Message, snippet) {
			return e, true
		}
	}
	return observer.LoggedEntry{}, false
}

// AssertLogged fails tb unless some entry at level contains snippet.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if _, ok := t.find(level, snippet); !ok {
		tb.Errorf("no %s entry containing %q; recorded: %s", level, snippet, t.summary())
	}
}

// AssertNotLogged fails tb if any entry at level contains snippet.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if e, ok := t.find(level, snippet); ok {
		tb.Errorf("unexpected %s entry %q", level, e.Message)
	}
}

// AssertField fails tb unless an entry whose message contains snippet has
// key set to want.
func (t *TestLogger) AssertField(tb testing.TB, snippet, key string, want any) {
	tb.Helper()
	for _, e := range t.FilterMessage(snippet).All() {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("no entry containing %q with %s=%v; recorded: %s", snippet, key, want, t.summary())
}

func (t *TestLogger) summary() string {
	var b strings.Builder
	for i, e := range t.logs.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Level.String() + ":" + e.Message)
	}
	return "[" + b.String() + "]"
}
