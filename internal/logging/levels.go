// internal/logging/levels.go
package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below zap's Debug. It carries per-attempt
// process chatter: strategy selection, raw stderr tails, workspace scan
// counts. Production configs keep it off.
const TraceLevel = zapcore.Level(-2)

// levelNames maps config spellings onto zapcore levels. "warning" is
// accepted because zapcore's own parser accepts it.
var levelNames = map[string]zapcore.Level{
	"trace":   TraceLevel,
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
	"fatal":   zapcore.FatalLevel,
}

// LevelFromString parses a config level name, including "trace".
func LevelFromString(name string) (zapcore.Level, error) {
	if lvl, ok := levelNames[name]; ok {
		return lvl, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// LevelName renders a level the way the config file spells it.
func LevelName(lvl zapcore.Level) string {
	if lvl == TraceLevel {
		return "trace"
	}
	return lvl.String()
}
