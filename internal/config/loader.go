package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "GENAGENT_"
)

// Load loads configuration from the default file location and environment.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GENAGENT_WORKFLOW_MAX_ITERATIONS, GENAGENT_MODEL_PROVIDER, etc.)
//  2. YAML config file (~/.config/genagent/config.yaml)
//  3. Hardcoded defaults
//
// # Security Considerations
//
// Only files under ~/.config/genagent/ or /etc/genagent/ are accepted. The file
// must have 0600 or 0400 permissions and be smaller than 1MB.
//
// # Environment Variable Mapping
//
// The prefix is stripped and the remainder is split on its first underscore:
//
//	GENAGENT_WORKFLOW_MAX_ITERATIONS -> workflow.max_iterations
//	GENAGENT_MODEL_API_KEY           -> model.api_key
//
// Provider API keys fall back to GOOGLE_API_KEY, ANTHROPIC_API_KEY and
// OPENAI_API_KEY when model.api_key is unset.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Zero is meaningful for these keys, so they are preset instead of
	// being filled in after unmarshal.
	for key, val := range zeroableDefaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to preset %s: %w", key, err)
		}
	}

	if configPath == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps GENAGENT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate through the open descriptor to avoid a TOCTOU race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// DefaultConfigDir returns ~/.config/genagent.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "genagent"), nil
}

// DefaultDataDir returns ~/.local/share/genagent.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "genagent")
	}
	return filepath.Join(home, ".local", "share", "genagent")
}

// EnsureConfigDir creates the genagent config directory with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Paths that don't exist yet are validated as written.
		resolvedPath = absPath
	}

	configDir, err := DefaultConfigDir()
	if err != nil {
		return err
	}

	for _, dir := range []string{configDir, "/etc/genagent"} {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/genagent/ or /etc/genagent/")
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// zeroableDefaults are defaults for keys where zero is a valid setting.
var zeroableDefaults = map[string]any{
	"workflow.max_retries":   2,
	"workflow.replan_budget": 1,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Workflow.MaxRetries = zeroableDefaults["workflow.max_retries"].(int)
	cfg.Workflow.ReplanBudget = zeroableDefaults["workflow.replan_budget"].(int)
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	w := &cfg.Workflow
	if w.MaxIterations == 0 {
		w.MaxIterations = 25
	}
	if w.RoleTimeout == 0 {
		w.RoleTimeout = 60 * time.Second
	}
	if w.ToolTimeout == 0 {
		w.ToolTimeout = 30 * time.Second
	}
	if w.MemoryTimeout == 0 {
		w.MemoryTimeout = 5 * time.Second
	}
	if w.MemoryTopK == 0 {
		w.MemoryTopK = 3
	}

	roleDefaults(&cfg.Agents.Planner, 0.2, 2048)
	roleDefaults(&cfg.Agents.Executor, 0.3, 1024)
	roleDefaults(&cfg.Agents.Validator, 0.1, 512)
	roleDefaults(&cfg.Agents.Memory, 0.3, 512)

	if cfg.Validator.Threshold == 0 {
		cfg.Validator.Threshold = 0.8
	}

	m := &cfg.Model
	if m.Provider == "" {
		m.Provider = "gemini"
	}
	if m.Name == "" {
		m.Name = defaultModelName(m.Provider)
	}
	if !m.APIKey.IsSet() {
		m.APIKey = Secret(providerKeyFromEnv(m.Provider))
	}
	if m.RateLimit == 0 {
		m.RateLimit = 2
	}
	if m.Burst == 0 {
		m.Burst = 4
	}
	if m.Timeout == 0 {
		m.Timeout = 60 * time.Second
	}
	if m.Retry.InitialDelay == 0 {
		m.Retry.InitialDelay = 200 * time.Millisecond
	}
	if m.Retry.Factor == 0 {
		m.Retry.Factor = 2
	}
	if m.Retry.MaxDelay == 0 {
		m.Retry.MaxDelay = 10 * time.Second
	}

	if cfg.Tools.MaxOutputBytes == 0 {
		cfg.Tools.MaxOutputBytes = 64 * 1024
	}
	if cfg.Tools.FileReader.Root == "" {
		cfg.Tools.FileReader.Root = "."
	}
	if len(cfg.Tools.FileReader.AllowedGlobs) == 0 {
		cfg.Tools.FileReader.AllowedGlobs = []string{"**/*.txt", "**/*.md", "**/*.csv", "**/*.json", "**/*.yaml"}
	}
	if cfg.Tools.FileReader.MaxSizeBytes == 0 {
		cfg.Tools.FileReader.MaxSizeBytes = 10 * 1024 * 1024
	}
	if cfg.Tools.PythonExecutor.MaxSteps == 0 {
		cfg.Tools.PythonExecutor.MaxSteps = 10_000_000
	}

	dataDir := DefaultDataDir()
	mem := &cfg.Memory
	if mem.Provider == "" {
		mem.Provider = "chromem"
	}
	if mem.Chromem.Path == "" {
		mem.Chromem.Path = filepath.Join(dataDir, "memory")
	}
	if mem.Chromem.Collection == "" {
		mem.Chromem.Collection = "genagent_memory"
	}
	if mem.Qdrant.Host == "" {
		mem.Qdrant.Host = "localhost"
	}
	if mem.Qdrant.Port == 0 {
		mem.Qdrant.Port = 6334
	}
	if mem.Qdrant.Collection == "" {
		mem.Qdrant.Collection = "genagent_memory"
	}
	if mem.Conversation.Path == "" {
		mem.Conversation.Path = filepath.Join(dataDir, "conversation.db")
	}
	if mem.Conversation.MaxMessages == 0 {
		mem.Conversation.MaxMessages = 50
	}

	e := &cfg.Embeddings
	if e.Provider == "" {
		e.Provider = "hash"
	}
	if e.Model == "" {
		e.Model = "BAAI/bge-small-en-v1.5"
	}
	if e.BaseURL == "" && e.Provider == "tei" {
		e.BaseURL = "http://localhost:8080"
	}
	if e.Dimension == 0 {
		e.Dimension = 384
	}
	if e.Provider == "openai" && !e.APIKey.IsSet() {
		e.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8088
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RunHistory == 0 {
		cfg.Server.RunHistory = 100
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://127.0.0.1:4222"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "genagent"
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "localhost:7233"
	}
	if cfg.Temporal.Namespace == "" {
		cfg.Temporal.Namespace = "default"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "genagent-goals"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}

func roleDefaults(r *RoleConfig, temperature float64, maxTokens int) {
	// A zero temperature is a legitimate choice, so only an entirely unset
	// role picks up the default temperature.
	if r.MaxTokens == 0 && r.Temperature == 0 {
		r.Temperature = temperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = maxTokens
	}
}

func defaultModelName(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-5"
	case "openai":
		return "gpt-4o-mini"
	case "ollama":
		return "llama3.1"
	default:
		return "gemini-2.0-flash"
	}
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}
