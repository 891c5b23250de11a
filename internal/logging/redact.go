package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/cadence/internal/config"
)

const (
	redactedValue   = "[REDACTED]"
	redactedPattern = "[REDACTED:pattern]"
)

// Secret logs a config.Secret as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// RedactedString logs only the length of val.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactingEncoder masks sensitive field names and value patterns.
type RedactingEncoder struct {
	zapcore.Encoder
	fields   map[string]bool
	patterns []*regexp.Regexp
}

// NewRedactingEncoder wraps base with the redaction rules in cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	e := &RedactingEncoder{Encoder: base, fields: map[string]bool{}}
	if !cfg.Enabled {
		return e, nil
	}
	for _, f := range cfg.Fields {
		e.fields[strings.ToLower(f)] = true
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, re)
	}
	return e, nil
}

// mask returns the replacement for a field, if any: key matches win over
// value patterns, and only string values are pattern matched.
func (e *RedactingEncoder) mask(key string, val *string) (string, bool) {
	if e.fields[strings.ToLower(key)] {
		return redactedValue, true
	}
	if val != nil {
		for _, re := range e.patterns {
			if re.MatchString(*val) {
				return redactedPattern, true
			}
		}
	}
	return "", false
}

func (e *RedactingEncoder) AddString(key, val string) {
	if m, ok := e.mask(key, &val); ok {
		val = m
	}
	e.Encoder.AddString(key, val)
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if m, ok := e.mask(key, nil); ok {
		e.Encoder.AddString(key, m)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if m, ok := e.mask(key, nil); ok {
		e.Encoder.AddString(key, m)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if m, ok := e.mask(key, nil); ok {
		e.Encoder.AddString(key, m)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), fields: e.fields, patterns: e.patterns}
}

// EncodeEntry redacts per-entry fields, which the wrapped encoder would
// otherwise add without calling back into this type.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		var val *string
		if f.Type == zapcore.StringType {
			val = &f.String
		}
		if m, ok := e.mask(f.Key, val); ok {
			f = zap.String(f.Key, m)
		}
		out[i] = f
	}
	return e.Encoder.EncodeEntry(ent, out)
}
