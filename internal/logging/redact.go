// internal/logging/redact.go
package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ensemble/internal/config"
)

const (
	redactedTag        = "[REDACTED]"
	redactedPatternTag = "[REDACTED:pattern]"
)

// Secret renders a config.Secret as a field revealing only the value's
// length.
func Secret(key string, val config.Secret) zap.Field {
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val.Value())))
}

// RedactedString replaces val with a length-only marker.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val)))
}

// redactRules is the compiled form of RedactionConfig.
type redactRules struct {
	fields   map[string]struct{}
	patterns []*regexp.Regexp
}

func compileRules(cfg RedactionConfig) (*redactRules, error) {
	r := &redactRules{fields: make(map[string]struct{}, len(cfg.Fields))}
	for _, f := range cfg.Fields {
		r.fields[strings.ToLower(f)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxRedactionPattern {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxRedactionPattern, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r *redactRules) matchKey(key string) bool {
	_, hit := r.fields[strings.ToLower(key)]
	return hit
}

func (r *redactRules) matchValue(val string) bool {
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return true
		}
	}
	return false
}

// redactingEncoder blanks sensitive fields before they reach the
// underlying encoder. Field-name hits are replaced regardless of type;
// pattern hits apply to string values only.
type redactingEncoder struct {
	zapcore.Encoder
	rules *redactRules
}

// newRedactingEncoder wraps base with cfg's rules. A disabled cfg
// returns base unchanged.
func newRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (zapcore.Encoder, error) {
	if !cfg.Enabled {
		return base, nil
	}
	rules, err := compileRules(cfg)
	if err != nil {
		return nil, err
	}
	return &redactingEncoder{Encoder: base, rules: rules}, nil
}

func (e *redactingEncoder) AddString(key, val string) {
	switch {
	case e.rules.matchKey(key):
		e.Encoder.AddString(key, redactedTag)
	case e.rules.matchValue(val):
		e.Encoder.AddString(key, redactedPatternTag)
	default:
		e.Encoder.AddString(key, val)
	}
}

func (e *redactingEncoder) AddByteString(key string, val []byte) {
	switch {
	case e.rules.matchKey(key):
		e.Encoder.AddString(key, redactedTag)
	case e.rules.matchValue(string(val)):
		e.Encoder.AddString(key, redactedPatternTag)
	default:
		e.Encoder.AddByteString(key, val)
	}
}

func (e *redactingEncoder) AddBinary(key string, val []byte) {
	if e.rules.matchKey(key) {
		e.Encoder.AddString(key, redactedTag)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected blanks the whole value on a key hit. Sensitive data
// nested under a clean key passes through, so structs carry secrets as
// config.Secret rather than raw strings.
func (e *redactingEncoder) AddReflected(key string, val interface{}) error {
	if e.rules.matchKey(key) {
		e.Encoder.AddString(key, redactedTag)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *redactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.rules.matchKey(key) {
		e.Encoder.AddString(key, redactedTag)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *redactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.rules.matchKey(key) {
		e.Encoder.AddString(key, redactedTag)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{Encoder: e.Encoder.Clone(), rules: e.rules}
}
