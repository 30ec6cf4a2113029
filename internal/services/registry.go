package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/agents"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/durable"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/events"
	apihttp "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/http"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/mcp"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/secrets"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow"

// Registry provides access to the components of one process.
type Registry interface {
	Config() *config.Config
	Engine() *workflow.Engine
	Tools() *tools.Registry
	// Memory is nil when memory.provider is "none".
	Memory() *memory.Service
	Conversation() *memory.ConversationLog
	Scrubber() secrets.Scrubber
	// Events is nil unless NATS publishing is enabled.
	Events() *events.Publisher

	NewHTTPServer() (*apihttp.Server, error)
	NewMCPServer() (*mcp.Server, error)
	NewActivities() *durable.Activities

	// Reload applies the workflow limits of cfg to runs started afterwards.
	Reload(cfg *config.Config) error
	Close() error
}

// Options configures Build.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Version string

	// Model replaces the configured reasoning provider.
	Model reasoning.Model

	// Embedder replaces the configured embedding provider.
	Embedder embeddings.Provider

	// Observers are attached to the engine after the built-in ones.
	Observers []workflow.Observer

	// Events enables NATS publishing when cfg.NATS.Enabled is also set.
	Events bool
}

type registry struct {
	cfg     *config.Config
	version string
	logger  *logging.Logger

	model        reasoning.Model
	embedder     embeddings.Provider
	memory       *memory.Service
	conversation *memory.ConversationLog
	scrubber     secrets.Scrubber
	publisher    *events.Publisher
	tools        *tools.Registry
	engine       *workflow.Engine

	closers []func() error
}

// Build creates every component described by opts.Config. On error,
// anything already opened is closed.
func Build(ctx context.Context, opts Options) (_ Registry, err error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	r := &registry{
		cfg:     opts.Config,
		version: opts.Version,
		logger:  opts.Logger,
	}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if err := r.initScrubber(); err != nil {
		return nil, err
	}
	if err := r.initModel(opts.Model); err != nil {
		return nil, err
	}
	if err := r.initMemory(ctx, opts.Embedder); err != nil {
		return nil, err
	}
	if opts.Events && r.cfg.NATS.Enabled {
		pub, err := events.Connect(r.cfg.NATS, r.logger)
		if err != nil {
			return nil, err
		}
		r.publisher = pub
		r.closers = append(r.closers, pub.Close)
	}
	if err := r.initEngine(opts.Observers); err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "services initialized",
		zap.String("model", r.model.Name()),
		zap.String("memory_provider", r.cfg.Memory.Provider),
		zap.Int("tools", len(r.tools.List())),
		zap.Bool("events", r.publisher != nil),
		zap.Bool("scrubber", r.scrubber.IsEnabled()),
	)
	return r, nil
}

func (r *registry) initScrubber() error {
	if !r.cfg.Secrets.Enabled {
		r.scrubber = secrets.Noop{}
		return nil
	}
	var allow *secrets.Allowlist
	if r.cfg.Secrets.Allowlist != "" {
		var err error
		if allow, err = secrets.LoadAllowlist(r.cfg.Secrets.Allowlist); err != nil {
			return fmt.Errorf("loading secrets allowlist: %w", err)
		}
	}
	s, err := secrets.New(allow)
	if err != nil {
		return fmt.Errorf("creating secret scrubber: %w", err)
	}
	r.scrubber = s
	return nil
}

func (r *registry) initModel(override reasoning.Model) error {
	if override != nil {
		r.model = override
		return nil
	}
	m, err := reasoning.New(r.cfg.Model)
	if err != nil {
		return fmt.Errorf("creating %s model: %w", r.cfg.Model.Provider, err)
	}
	r.model = m
	return nil
}

func (r *registry) initMemory(ctx context.Context, embedder embeddings.Provider) error {
	conv, err := memory.OpenConversationLog(r.cfg.Memory.Conversation.Path, r.cfg.Memory.Conversation.MaxMessages)
	if err != nil {
		return fmt.Errorf("opening conversation log: %w", err)
	}
	r.conversation = conv
	r.closers = append(r.closers, conv.Close)

	if r.cfg.Memory.Provider == "none" {
		return nil
	}

	if embedder == nil {
		if embedder, err = embeddings.NewProvider(r.cfg.Embeddings); err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		r.closers = append(r.closers, embedder.Close)
	}
	r.embedder = embedder

	store, err := memory.NewStore(ctx, r.cfg.Memory, embedder)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}
	r.memory = memory.NewService(store,
		memory.WithScrubber(r.scrubber),
		memory.WithLogger(r.logger),
	)
	r.closers = append(r.closers, r.memory.Close)
	return nil
}

func (r *registry) initEngine(extra []workflow.Observer) error {
	// A nil *memory.Service must not reach the interface parameters.
	var (
		searcher tools.Searcher
		store    workflow.MemoryStore = memory.NewService(memory.NopStore{})
	)
	if r.memory != nil {
		searcher = r.memory
		store = r.memory
	}

	toolset, err := tools.NewDefaultRegistry(r.cfg.Tools, searcher, r.logger)
	if err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	r.tools = toolset

	metrics, err := workflow.NewMetrics(otel.Meter(instrumentationName + "/workflow"))
	if err != nil {
		return fmt.Errorf("creating workflow metrics: %w", err)
	}

	opts := []workflow.Option{
		workflow.WithSettings(workflow.SettingsFromConfig(r.cfg.Workflow)),
		workflow.WithLogger(r.logger),
		workflow.WithTracer(otel.Tracer(instrumentationName + "/workflow")),
		workflow.WithTranscript(r.conversation),
		workflow.WithObserver(metrics),
	}
	if r.publisher != nil {
		opts = append(opts, workflow.WithObserver(r.publisher))
	}
	for _, o := range extra {
		opts = append(opts, workflow.WithObserver(o))
	}

	roles := agents.NewRoles(r.model, r.cfg,
		agents.WithLogger(r.logger),
		agents.WithTracer(otel.Tracer(instrumentationName+"/agents")),
	)
	engine, err := workflow.NewEngine(roles, toolset, store, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	r.engine = engine
	return nil
}

func (r *registry) Config() *config.Config                { return r.cfg }
func (r *registry) Engine() *workflow.Engine              { return r.engine }
func (r *registry) Tools() *tools.Registry                { return r.tools }
func (r *registry) Memory() *memory.Service               { return r.memory }
func (r *registry) Conversation() *memory.ConversationLog { return r.conversation }
func (r *registry) Scrubber() secrets.Scrubber            { return r.scrubber }
func (r *registry) Events() *events.Publisher             { return r.publisher }

func (r *registry) NewHTTPServer() (*apihttp.Server, error) {
	deps := apihttp.Deps{
		Runner:       r.engine,
		Tools:        r.tools,
		Conversation: r.conversation,
		Version:      r.version,
	}
	if r.memory != nil {
		deps.Memory = r.memory
	}
	if r.publisher != nil {
		deps.Events = r.publisher.Conn()
		deps.EventPrefix = r.publisher.Prefix()
	}
	deps.Metrics = apihttp.NewHTTPMetrics(otel.Meter(instrumentationName+"/http"), r.logger)
	return apihttp.NewServer(deps, r.logger, r.cfg.Server)
}

func (r *registry) NewMCPServer() (*mcp.Server, error) {
	var mem mcp.MemorySearcher
	if r.memory != nil {
		mem = r.memory
	}
	return mcp.NewServer(&mcp.Config{
		Name:     "genagent",
		Version:  r.version,
		Logger:   r.logger,
		Scrubber: r.scrubber,
	}, r.engine, r.tools, mem)
}

func (r *registry) NewActivities() *durable.Activities {
	return durable.NewActivities(r.engine, r.logger)
}

func (r *registry) Reload(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := r.engine.UpdateSettings(workflow.SettingsFromConfig(cfg.Workflow)); err != nil {
		return fmt.Errorf("applying workflow settings: %w", err)
	}
	r.logger.Info(context.Background(), "workflow settings reloaded",
		zap.Int("max_iterations", cfg.Workflow.MaxIterations),
		zap.Int("max_retries", cfg.Workflow.MaxRetries),
		zap.Int("replan_budget", cfg.Workflow.ReplanBudget),
	)
	return nil
}

// Close releases resources in reverse order of creation.
func (r *registry) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Watch reloads workflow settings whenever the config file at path changes.
// The returned stop function is safe to call more than once.
func Watch(ctx context.Context, reg Registry, path string, logger *logging.Logger) (stop func(), err error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	w, err := config.NewWatcher(path,
		func(cfg *config.Config) {
			if err := reg.Reload(cfg); err != nil {
				logger.Warn(ctx, "config reload rejected", zap.Error(err))
			}
		},
		func(err error) {
			logger.Warn(ctx, "config reload failed", zap.String("path", path), zap.Error(err))
		},
	)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return w.Stop, nil
}
