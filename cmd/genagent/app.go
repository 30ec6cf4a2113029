package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/services"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/telemetry"
)

// app holds the global flags and I/O of one CLI invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	output     string
	logLevel   string

	// open loads configuration and, when opts is non-nil, builds services.
	// Tests replace it.
	open func(ctx context.Context, a *app, opts *services.Options) (*session, error)
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		output: formatText,
		open:   openSession,
	}
}

// session is the set of process-wide components a command works with.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	reg    services.Registry
	tel    *telemetry.Telemetry
}

// Close releases the registry, flushes telemetry and syncs the logger.
func (s *session) Close() {
	if s.reg != nil {
		if err := s.reg.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing services", zap.Error(err))
		}
	}
	if s.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.tel.Shutdown(ctx)
	}
	_ = s.logger.Sync()
}

func openSession(ctx context.Context, a *app, opts *services.Options) (*session, error) {
	cfg, err := config.LoadWithFile(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logCfg, err := logging.FromSettings(level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if tel.Health().Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", tel.DegradedReason()))
	}

	s := &session{cfg: cfg, logger: logger, tel: tel}
	if opts == nil {
		return s, nil
	}

	opts.Config = cfg
	opts.Logger = logger
	opts.Version = version
	reg, err := services.Build(ctx, *opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.reg = reg
	return s, nil
}

// openServices is the common case: configuration plus every service.
func (a *app) openServices(ctx context.Context, opts services.Options) (*session, error) {
	s, err := a.open(ctx, a, &opts)
	if err != nil {
		return nil, setupError(err)
	}
	return s, nil
}

// configFile returns the file serve mode watches for changes.
func (a *app) configFile() (string, bool) {
	path := a.configPath
	if path == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return "", false
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
