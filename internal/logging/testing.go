package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry in memory for assertions.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger captures all levels including trace.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{Logger: &Logger{zap: zap.New(core)}, logs: logs}
}

// All returns every captured entry.
func (t *TestLogger) All() []observer.LoggedEntry { return t.logs.All() }

// FilterMessage returns entries whose message equals msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessage(msg)
}

// AssertLogged fails tb unless an entry at lvl contains substr.
func (t *TestLogger) AssertLogged(tb testing.TB, lvl zapcore.Level, substr string) {
	tb.Helper()
	for _, e := range t.logs.All() {
		if e.Level == lvl && strings.Contains(e.Message, substr) {
			return
		}
	}
	tb.Errorf("no %s entry containing %q in %d entries", lvl, substr, t.logs.Len())
}

// AssertField fails tb unless an entry with message msg has key == want.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	for _, e := range t.logs.FilterMessage(msg).All() {
		if got, ok := e.ContextMap()[key]; ok && got == want {
			return
		}
	}
	tb.Errorf("entry %q has no field %s=%v", msg, key, want)
}
