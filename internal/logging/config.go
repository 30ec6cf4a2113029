package logging

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug and carries prompts and raw model replies.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name; "trace" is accepted in addition to
// the zap names.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Config controls the zap core built by NewLogger.
type Config struct {
	Level  zapcore.Level
	Format string // json or console

	// Console writes to stderr. Stdout carries run reports and MCP frames.
	Console bool
	// OTEL tees records into the OpenTelemetry log bridge.
	OTEL bool

	Sampling Sampling

	AddCaller       bool
	StacktraceLevel zapcore.Level

	// Service is attached to every record as "service".
	Service string

	// RedactKeys are field names whose values are always masked.
	RedactKeys []string
	// RedactPatterns mask any string value they match.
	RedactPatterns []string
}

// Sampling thins repeated Debug..Warn records per Tick. Errors are never
// sampled.
type Sampling struct {
	Enabled    bool
	Tick       time.Duration
	First      int
	Thereafter int
}

const maxPatternLen = 200

// NewDefaultConfig returns JSON on stderr at info with sampling and redaction on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:   zapcore.InfoLevel,
		Format:  "json",
		Console: true,
		Sampling: Sampling{
			Enabled:    true,
			Tick:       time.Second,
			First:      100,
			Thereafter: 10,
		},
		AddCaller:       true,
		StacktraceLevel: zapcore.ErrorLevel,
		Service:         "genagent",
		RedactKeys: []string{
			"api_key", "apikey", "authorization", "password", "secret", "token",
		},
		RedactPatterns: []string{
			`(?i)bearer\s+\S+`,
			`(?i)api[_-]?key[=:]\s*\S+`,
			`AIza[0-9A-Za-z_\-]{20,}`,
			`sk-(ant-)?[0-9A-Za-z_\-]{16,}`,
		},
	}
}

// FromSettings starts from the defaults and applies the logging.level and
// logging.format values of the config file.
func FromSettings(level, format string) (*Config, error) {
	cfg := NewDefaultConfig()
	if level != "" {
		lvl, err := LevelFromString(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	if format != "" {
		cfg.Format = format
	}
	// Sampling would hide per-task debug records someone asked for.
	if cfg.Level < zapcore.InfoLevel {
		cfg.Sampling.Enabled = false
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Format != "json" && c.Format != "console" {
		errs = append(errs, fmt.Errorf("format must be json or console, got %q", c.Format))
	}
	if !c.Console && !c.OTEL {
		errs = append(errs, errors.New("no log output enabled"))
	}
	if c.Sampling.Enabled && c.Sampling.Tick <= 0 {
		errs = append(errs, errors.New("sampling tick must be positive"))
	}
	for _, p := range c.RedactPatterns {
		if len(p) > maxPatternLen {
			errs = append(errs, fmt.Errorf("redaction pattern longer than %d chars", maxPatternLen))
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("redaction pattern %q: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
