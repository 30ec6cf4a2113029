// Package config provides configuration loading for genagent.
//
// Configuration is read once from a YAML file and a GENAGENT_ environment
// overlay. A loaded *Config is treated as an immutable snapshot: runs copy the
// values they need at start and never observe later reloads.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete genagent configuration.
type Config struct {
	Workflow   WorkflowConfig   `koanf:"workflow" json:"workflow" yaml:"workflow"`
	Agents     AgentsConfig     `koanf:"agents" json:"agents" yaml:"agents"`
	Validator  ValidatorConfig  `koanf:"validator" json:"validator" yaml:"validator"`
	Model      ModelConfig      `koanf:"model" json:"model" yaml:"model"`
	Tools      ToolsConfig      `koanf:"tools" json:"tools" yaml:"tools"`
	Memory     MemoryConfig     `koanf:"memory" json:"memory" yaml:"memory"`
	Embeddings EmbeddingsConfig `koanf:"embeddings" json:"embeddings" yaml:"embeddings"`
	Secrets    SecretsConfig    `koanf:"secrets" json:"secrets" yaml:"secrets"`
	Server     ServerConfig     `koanf:"server" json:"server" yaml:"server"`
	NATS       NATSConfig       `koanf:"nats" json:"nats" yaml:"nats"`
	Temporal   TemporalConfig   `koanf:"temporal" json:"temporal" yaml:"temporal"`
	Logging    LoggingConfig    `koanf:"logging" json:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry" json:"telemetry" yaml:"telemetry"`
}

// WorkflowConfig bounds a single run.
type WorkflowConfig struct {
	MaxIterations int           `koanf:"max_iterations" json:"max_iterations" yaml:"max_iterations"`
	MaxRetries    int           `koanf:"max_retries" json:"max_retries" yaml:"max_retries"`
	ReplanBudget  int           `koanf:"replan_budget" json:"replan_budget" yaml:"replan_budget"`
	RoleTimeout   time.Duration `koanf:"role_timeout" json:"role_timeout" yaml:"role_timeout"`
	ToolTimeout   time.Duration `koanf:"tool_timeout" json:"tool_timeout" yaml:"tool_timeout"`
	MemoryTimeout time.Duration `koanf:"memory_timeout" json:"memory_timeout" yaml:"memory_timeout"`
	MemoryTopK    int           `koanf:"memory_top_k" json:"memory_top_k" yaml:"memory_top_k"`
}

// AgentsConfig holds per-role decoding settings.
type AgentsConfig struct {
	Planner   RoleConfig `koanf:"planner" json:"planner" yaml:"planner"`
	Executor  RoleConfig `koanf:"executor" json:"executor" yaml:"executor"`
	Validator RoleConfig `koanf:"validator" json:"validator" yaml:"validator"`
	Memory    RoleConfig `koanf:"memory" json:"memory" yaml:"memory"`
}

// RoleConfig is the decoding budget of one agent role.
type RoleConfig struct {
	Temperature  float64 `koanf:"temperature" json:"temperature" yaml:"temperature"`
	MaxTokens    int     `koanf:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	SystemPrompt string  `koanf:"system_prompt" json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// ValidatorConfig tunes how validator verdicts are turned into outcomes.
type ValidatorConfig struct {
	Threshold           float64 `koanf:"threshold" json:"threshold" yaml:"threshold"`
	AcceptDeterministic *bool   `koanf:"accept_deterministic" json:"accept_deterministic" yaml:"accept_deterministic"`
}

// ModelConfig selects the reasoning provider.
type ModelConfig struct {
	Provider  string        `koanf:"provider" json:"provider" yaml:"provider"`
	Name      string        `koanf:"name" json:"name" yaml:"name"`
	APIKey    Secret        `koanf:"api_key" json:"api_key" yaml:"api_key"`
	BaseURL   string        `koanf:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	TopP      float64       `koanf:"top_p" json:"top_p,omitempty" yaml:"top_p,omitempty"`
	TopK      int           `koanf:"top_k" json:"top_k,omitempty" yaml:"top_k,omitempty"`
	RateLimit float64       `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	Burst     int           `koanf:"burst" json:"burst" yaml:"burst"`
	Timeout   time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Retry     RetryConfig   `koanf:"retry" json:"retry" yaml:"retry"`
}

// RetryConfig is the backoff applied when the model is unavailable.
type RetryConfig struct {
	InitialDelay time.Duration `koanf:"initial_delay" json:"initial_delay" yaml:"initial_delay"`
	Factor       float64       `koanf:"factor" json:"factor" yaml:"factor"`
	MaxDelay     time.Duration `koanf:"max_delay" json:"max_delay" yaml:"max_delay"`
}

// ToolsConfig holds tool registry limits.
type ToolsConfig struct {
	MaxOutputBytes int                  `koanf:"max_output_bytes" json:"max_output_bytes" yaml:"max_output_bytes"`
	FileReader     FileReaderConfig     `koanf:"file_reader" json:"file_reader" yaml:"file_reader"`
	PythonExecutor PythonExecutorConfig `koanf:"python_executor" json:"python_executor" yaml:"python_executor"`
}

// PythonExecutorConfig bounds python_executor snippets. The per-call
// timeout and output cap come from the workflow and tool settings.
type PythonExecutorConfig struct {
	MaxSteps uint64 `koanf:"max_steps" json:"max_steps" yaml:"max_steps"`
}

// FileReaderConfig restricts what file_reader may open.
type FileReaderConfig struct {
	Root         string   `koanf:"root" json:"root" yaml:"root"`
	AllowedGlobs []string `koanf:"allowed_globs" json:"allowed_globs" yaml:"allowed_globs"`
	MaxSizeBytes int64    `koanf:"max_size_bytes" json:"max_size_bytes" yaml:"max_size_bytes"`
}

// MemoryConfig selects the memory backend.
type MemoryConfig struct {
	Provider     string             `koanf:"provider" json:"provider" yaml:"provider"`
	Chromem      ChromemConfig      `koanf:"chromem" json:"chromem" yaml:"chromem"`
	Qdrant       QdrantConfig       `koanf:"qdrant" json:"qdrant" yaml:"qdrant"`
	Conversation ConversationConfig `koanf:"conversation" json:"conversation" yaml:"conversation"`
}

// ChromemConfig configures the embedded vector index.
type ChromemConfig struct {
	Path       string `koanf:"path" json:"path" yaml:"path"`
	Compress   bool   `koanf:"compress" json:"compress" yaml:"compress"`
	Collection string `koanf:"collection" json:"collection" yaml:"collection"`
}

// QdrantConfig configures the remote vector index.
type QdrantConfig struct {
	Host       string `koanf:"host" json:"host" yaml:"host"`
	Port       int    `koanf:"port" json:"port" yaml:"port"`
	Collection string `koanf:"collection" json:"collection" yaml:"collection"`
	UseTLS     bool   `koanf:"use_tls" json:"use_tls" yaml:"use_tls"`
	APIKey     Secret `koanf:"api_key" json:"api_key" yaml:"api_key"`
}

// ConversationConfig configures the append-only conversation log.
type ConversationConfig struct {
	Path        string `koanf:"path" json:"path" yaml:"path"`
	MaxMessages int    `koanf:"max_messages" json:"max_messages" yaml:"max_messages"`
}

// EmbeddingsConfig selects the embedding provider used by the memory index.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider" json:"provider" yaml:"provider"`
	Model     string `koanf:"model" json:"model" yaml:"model"`
	BaseURL   string `koanf:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey    Secret `koanf:"api_key" json:"api_key" yaml:"api_key"`
	CacheDir  string `koanf:"cache_dir" json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`
	Dimension int    `koanf:"dimension" json:"dimension" yaml:"dimension"`
}

// SecretsConfig controls scrubbing of memory content.
type SecretsConfig struct {
	Enabled   bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Allowlist string `koanf:"allowlist" json:"allowlist,omitempty" yaml:"allowlist,omitempty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host" json:"host" yaml:"host"`
	Port            int           `koanf:"port" json:"port" yaml:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
	RunHistory      int           `koanf:"run_history" json:"run_history" yaml:"run_history"`
}

// NATSConfig controls run event publishing.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	URL           string `koanf:"url" json:"url" yaml:"url"`
	SubjectPrefix string `koanf:"subject_prefix" json:"subject_prefix" yaml:"subject_prefix"`
}

// TemporalConfig controls durable goal execution.
type TemporalConfig struct {
	HostPort  string `koanf:"host_port" json:"host_port" yaml:"host_port"`
	Namespace string `koanf:"namespace" json:"namespace" yaml:"namespace"`
	TaskQueue string `koanf:"task_queue" json:"task_queue" yaml:"task_queue"`
}

// LoggingConfig is the subset of logging settings exposed in the config file.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// TelemetryConfig is the subset of OpenTelemetry settings exposed in the config file.
type TelemetryConfig struct {
	Enabled    bool    `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint   string  `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Protocol   string  `koanf:"protocol" json:"protocol" yaml:"protocol"`
	Insecure   bool    `koanf:"insecure" json:"insecure" yaml:"insecure"`
	SampleRate float64 `koanf:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
}

var (
	validModelProviders     = map[string]bool{"gemini": true, "anthropic": true, "openai": true, "ollama": true}
	validMemoryProviders    = map[string]bool{"chromem": true, "qdrant": true, "none": true}
	validEmbeddingProviders = map[string]bool{"hash": true, "fastembed": true, "tei": true, "openai": true}
)

// AcceptsDeterministic reports whether successful deterministic tool output
// bypasses the validator model. Defaults to true when unset.
func (v ValidatorConfig) AcceptsDeterministic() bool {
	return v.AcceptDeterministic == nil || *v.AcceptDeterministic
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Workflow.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("workflow.max_iterations must be >= 1, got %d", c.Workflow.MaxIterations))
	}
	if c.Workflow.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("workflow.max_retries must be >= 0, got %d", c.Workflow.MaxRetries))
	}
	if c.Workflow.ReplanBudget < 0 {
		errs = append(errs, fmt.Errorf("workflow.replan_budget must be >= 0, got %d", c.Workflow.ReplanBudget))
	}
	if c.Workflow.RoleTimeout <= 0 || c.Workflow.ToolTimeout <= 0 || c.Workflow.MemoryTimeout <= 0 {
		errs = append(errs, errors.New("workflow timeouts must be positive"))
	}
	if c.Workflow.MemoryTopK < 0 {
		errs = append(errs, fmt.Errorf("workflow.memory_top_k must be >= 0, got %d", c.Workflow.MemoryTopK))
	}

	for name, role := range map[string]RoleConfig{
		"planner":   c.Agents.Planner,
		"executor":  c.Agents.Executor,
		"validator": c.Agents.Validator,
		"memory":    c.Agents.Memory,
	} {
		if role.Temperature < 0 || role.Temperature > 2 {
			errs = append(errs, fmt.Errorf("agents.%s.temperature must be within [0, 2], got %v", name, role.Temperature))
		}
		if role.MaxTokens <= 0 {
			errs = append(errs, fmt.Errorf("agents.%s.max_tokens must be > 0, got %d", name, role.MaxTokens))
		}
	}

	if c.Validator.Threshold < 0 || c.Validator.Threshold > 1 {
		errs = append(errs, fmt.Errorf("validator.threshold must be within [0, 1], got %v", c.Validator.Threshold))
	}

	if !validModelProviders[c.Model.Provider] {
		errs = append(errs, fmt.Errorf("model.provider %q is not supported", c.Model.Provider))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.RateLimit < 0 {
		errs = append(errs, errors.New("model.rate_limit must be >= 0"))
	}
	if c.Model.Retry.Factor < 1 {
		errs = append(errs, fmt.Errorf("model.retry.factor must be >= 1, got %v", c.Model.Retry.Factor))
	}

	if c.Tools.MaxOutputBytes <= 0 {
		errs = append(errs, errors.New("tools.max_output_bytes must be > 0"))
	}

	if !validMemoryProviders[c.Memory.Provider] {
		errs = append(errs, fmt.Errorf("memory.provider %q is not supported", c.Memory.Provider))
	}
	if c.Memory.Provider == "qdrant" && (c.Memory.Qdrant.Host == "" || c.Memory.Qdrant.Port <= 0) {
		errs = append(errs, errors.New("memory.qdrant host and port are required"))
	}
	if !validEmbeddingProviders[c.Embeddings.Provider] {
		errs = append(errs, fmt.Errorf("embeddings.provider %q is not supported", c.Embeddings.Provider))
	}
	if c.Embeddings.Dimension <= 0 {
		errs = append(errs, errors.New("embeddings.dimension must be > 0"))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be within [0, 1], got %v", c.Telemetry.SampleRate))
	}

	return errors.Join(errs...)
}
