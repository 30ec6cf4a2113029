package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	maskKey     = "[REDACTED]"
	maskPattern = "[REDACTED:pattern]"
)

// redactor decides which field values must not reach the log sink.
type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func (r *redactor) empty() bool { return len(r.keys) == 0 && len(r.patterns) == 0 }

func (r *redactor) sensitiveKey(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// mask returns the replacement for val, or "" and false if val may be logged.
func (r *redactor) mask(key, val string) (string, bool) {
	if r.sensitiveKey(key) {
		return maskKey, true
	}
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return maskPattern, true
		}
	}
	return "", false
}

func (r *redactor) field(f zapcore.Field) zapcore.Field {
	if r.sensitiveKey(f.Key) {
		return zap.String(f.Key, maskKey)
	}
	if f.Type == zapcore.StringType {
		if m, ok := r.mask(f.Key, f.String); ok {
			return zap.String(f.Key, m)
		}
	}
	return f
}

// redactingEncoder masks sensitive fields in both per-entry fields and the
// context fields accumulated through With.
type redactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

func newRedactingEncoder(base zapcore.Encoder, keys, patterns []string) (*redactingEncoder, error) {
	r := &redactor{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return &redactingEncoder{Encoder: base, r: r}, nil
}

func (e *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}

func (e *redactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.r.empty() {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	masked := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		masked[i] = e.r.field(f)
	}
	return e.Encoder.EncodeEntry(ent, masked)
}

func (e *redactingEncoder) AddString(key, val string) {
	if m, ok := e.r.mask(key, val); ok {
		val = m
	}
	e.Encoder.AddString(key, val)
}

func (e *redactingEncoder) AddByteString(key string, val []byte) {
	if m, ok := e.r.mask(key, string(val)); ok {
		val = []byte(m)
	}
	e.Encoder.AddByteString(key, val)
}

func (e *redactingEncoder) AddReflected(key string, val any) error {
	if e.r.sensitiveKey(key) {
		e.Encoder.AddString(key, maskKey)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *redactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.sensitiveKey(key) {
		e.Encoder.AddString(key, maskKey)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *redactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.sensitiveKey(key) {
		e.Encoder.AddString(key, maskKey)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}
