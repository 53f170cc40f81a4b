// internal/logging/testing.go
package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger backed by an in-memory observer, with
// assertion helpers for package tests. The observer sits below the
// redaction layer, so helpers see exactly what call sites passed in.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a TestLogger capturing everything from Trace up.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{zap: zap.New(core), cfg: NewDefaultConfig()},
		logs:   logs,
	}
}

// Entries returns everything logged so far.
func (t *TestLogger) Entries() []observer.LoggedEntry {
	return t.logs.All()
}

// TakeAll drains and returns the captured entries.
func (t *TestLogger) TakeAll() []observer.LoggedEntry {
	return t.logs.TakeAll()
}

// find returns entries at lvl whose message contains msg.
func (t *TestLogger) find(lvl zapcore.Level, msg string) []observer.LoggedEntry {
	var hits []observer.LoggedEntry
	for _, e := range t.logs.All() {
		if e.Level == lvl && strings.Contains(e.Message, msg) {
			hits = append(hits, e)
		}
	}
	return hits
}

// AssertLogged fails tb unless an entry at lvl containing msg exists.
func (t *TestLogger) AssertLogged(tb testing.TB, lvl zapcore.Level, msg string) {
	tb.Helper()
	if len(t.find(lvl, msg)) == 0 {
		tb.Errorf("no %v entry containing %q; captured: %+v", lvl, msg, t.logs.All())
	}
}

// AssertNotLogged fails tb if an entry at lvl containing msg exists.
func (t *TestLogger) AssertNotLogged(tb testing.TB, lvl zapcore.Level, msg string) {
	tb.Helper()
	if hits := t.find(lvl, msg); len(hits) > 0 {
		tb.Errorf("unexpected %v entry containing %q: %+v", lvl, msg, hits)
	}
}

// AssertField fails tb unless some entry whose message contains msg
// carries a field key with the given value.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want interface{}) {
	tb.Helper()
	for _, e := range t.logs.FilterMessageSnippet(msg).All() {
		for _, f := range e.Context {
			if f.Key != key {
				continue
			}
			if f.Type == zapcore.StringType {
				if f.String == want {
					return
				}
				continue
			}
			if reflect.DeepEqual(f.Interface, want) {
				return
			}
		}
	}
	tb.Errorf("no entry for %q with field %s=%v", msg, key, want)
}

// AssertRunCorrelation fails tb unless entries matching msg carry the
// run.id correlation field.
func (t *TestLogger) AssertRunCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, e := range t.logs.FilterMessageSnippet(msg).All() {
		for _, f := range e.Context {
			if f.Key == "run.id" {
				return
			}
		}
	}
	tb.Errorf("entries for %q carry no run.id", msg)
}

// leakPattern matches bearer tokens and key material that should have
// gone through Secret or RedactedString.
var leakPattern = regexp.MustCompile(`(?i)bearer\s+\S+|api[_-]?key[=:]\s*[^\s\[]\S*|sk-[A-Za-z0-9_-]{16,}`)

// AssertNoSecrets scans captured entries for secret material that
// escaped redaction at the call site.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	for _, e := range t.logs.All() {
		if leakPattern.MatchString(e.Message) {
			tb.Errorf("secret material in message %q", e.Message)
		}
		for _, f := range e.Context {
			if f.Type == zapcore.StringType && leakPattern.MatchString(f.String) {
				tb.Errorf("secret material in field %q of %q", f.Key, e.Message)
			}
		}
	}
}
