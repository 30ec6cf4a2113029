package logging

import (
	"errors"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow"

func buildCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Console {
		enc, err := newRedactingEncoder(newEncoder(cfg.Format), cfg.RedactKeys, cfg.RedactPatterns)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), cfg.Level))
	}
	if cfg.OTEL && provider != nil {
		cores = append(cores, otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(provider)))
	}
	if len(cores) == 0 {
		return nil, errors.New("no log output available")
	}

	core := zapcore.NewTee(cores...)
	if cfg.Sampling.Enabled {
		core = sampled(core, cfg.Sampling)
	}
	return core, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if l == TraceLevel {
			enc.AppendString("trace")
			return
		}
		zapcore.LowercaseLevelEncoder(l, enc)
	}
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// sampled splits core at ErrorLevel: everything below goes through a
// sampler, errors always pass.
func sampled(core zapcore.Core, s Sampling) zapcore.Core {
	below := zapcore.NewSamplerWithOptions(
		levelRange{Core: core, max: zapcore.WarnLevel, hasMax: true},
		s.Tick, s.First, s.Thereafter,
	)
	return zapcore.NewTee(below, levelRange{Core: core, min: zapcore.ErrorLevel, hasMin: true})
}

// levelRange restricts a core to [min, max].
type levelRange struct {
	zapcore.Core
	min, max       zapcore.Level
	hasMin, hasMax bool
}

func (r levelRange) Enabled(l zapcore.Level) bool {
	if r.hasMin && l < r.min {
		return false
	}
	if r.hasMax && l > r.max {
		return false
	}
	return r.Core.Enabled(l)
}

func (r levelRange) With(fields []zapcore.Field) zapcore.Core {
	r.Core = r.Core.With(fields)
	return r
}

func (r levelRange) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !r.Enabled(e.Level) {
		return ce
	}
	return r.Core.Check(e, ce)
}
