package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvTasksFile    = "AGENTIC_TASKS_FILE"
	EnvLogFile      = "AGENTIC_LOG_FILE"
	EnvLogLevel     = "AGENTIC_LOG_LEVEL"
	EnvHistoryDB    = "AGENTIC_HISTORY_DB"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Dir is the per-project directory holding config, rules and history.
const Dir = ".agentic"

// HistoryConfig controls the SQLite attempt history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// AutoConfig holds the execution loop defaults used by the auto command.
type AutoConfig struct {
	MaxIterations   int           `yaml:"max_iterations"`
	Delay           time.Duration `yaml:"delay"`
	RulesCheck      bool          `yaml:"rules_check"`
	Parallel        bool          `yaml:"parallel"`
	MaxBatch        int           `yaml:"max_batch"`
	ContinueOnError bool          `yaml:"continue_on_error"`
	// TaskTimeout bounds each backend call; 0 means no limit.
	TaskTimeout time.Duration `yaml:"task_timeout"`
	// RequireApproval asks the operator before each task runs.
	RequireApproval bool `yaml:"require_approval"`
	// RollbackCommand runs after a task fails, with the same placeholders
	// and environment as a backend command plus AGENTIC_FAILURE.
	RollbackCommand []string `yaml:"rollback_command"`
}

// RulesConfig points at the persisted rule set.
type RulesConfig struct {
	File string `yaml:"file"`
}

// BackendConfig is the command run for one agent type. Arguments may use
// the {id}, {title}, {agent} and {phase} placeholders.
type BackendConfig struct {
	Command []string `yaml:"command"`
}

// TelemetryConfig controls OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Config represents agentic configuration options
type Config struct {
	TasksFile string `yaml:"tasks_file"`
	LogFile   string `yaml:"log_file"`
	// LogCap is the number of execution log entries kept.
	LogCap int `yaml:"log_cap"`
	// LogLevel sets console verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	History   HistoryConfig            `yaml:"history"`
	Auto      AutoConfig               `yaml:"auto"`
	Rules     RulesConfig              `yaml:"rules"`
	Backends  map[string]BackendConfig `yaml:"backends"`
	Telemetry TelemetryConfig          `yaml:"telemetry"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		TasksFile: "tasks.json",
		LogFile:   "execution-log.json",
		LogCap:    1000,
		LogLevel:  "info",
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(Dir, "history.db"),
		},
		Auto: AutoConfig{
			MaxIterations: 100,
			Delay:         2 * time.Second,
			RulesCheck:    true,
			MaxBatch:      3,
		},
		Rules: RulesConfig{
			File: filepath.Join(Dir, "rules.yaml"),
		},
		Telemetry: TelemetryConfig{
			ServiceName: "agentic",
		},
	}
}

// yamlConfig mirrors Config with pointers so keys present in the file can
// be told apart from zero values, and durations stay strings until parsed.
type yamlConfig struct {
	TasksFile *string `yaml:"tasks_file"`
	LogFile   *string `yaml:"log_file"`
	LogCap    *int    `yaml:"log_cap"`
	LogLevel  *string `yaml:"log_level"`
	History   *struct {
		Enabled *bool   `yaml:"enabled"`
		DBPath  *string `yaml:"db_path"`
	} `yaml:"history"`
	Auto *struct {
		MaxIterations   *int    `yaml:"max_iterations"`
		Delay           *string `yaml:"delay"`
		RulesCheck      *bool   `yaml:"rules_check"`
		Parallel        *bool   `yaml:"parallel"`
		MaxBatch        *int    `yaml:"max_batch"`
		ContinueOnError *bool   `yaml:"continue_on_error"`
		TaskTimeout     *string `yaml:"task_timeout"`
	} `yaml:"auto"`
	Rules *struct {
		File *string `yaml:"file"`
	} `yaml:"rules"`
	Backends  map[string]BackendConfig `yaml:"backends"`
	Telemetry *struct {
		Enabled     *bool   `yaml:"enabled"`
		Endpoint    *string `yaml:"endpoint"`
		ServiceName *string `yaml:"service_name"`
	} `yaml:"telemetry"`
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.merge(&y); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(y *yamlConfig) error {
	setString(&c.TasksFile, y.TasksFile)
	setString(&c.LogFile, y.LogFile)
	setInt(&c.LogCap, y.LogCap)
	setString(&c.LogLevel, y.LogLevel)

	if h := y.History; h != nil {
		setBool(&c.History.Enabled, h.Enabled)
		setString(&c.History.DBPath, h.DBPath)
	}
	if a := y.Auto; a != nil {
		setInt(&c.Auto.MaxIterations, a.MaxIterations)
		setBool(&c.Auto.RulesCheck, a.RulesCheck)
		setBool(&c.Auto.Parallel, a.Parallel)
		setInt(&c.Auto.MaxBatch, a.MaxBatch)
		setBool(&c.Auto.ContinueOnError, a.ContinueOnError)
		if err := setDuration(&c.Auto.Delay, a.Delay, "auto.delay"); err != nil {
			return err
		}
		if err := setDuration(&c.Auto.TaskTimeout, a.TaskTimeout, "auto.task_timeout"); err != nil {
			return err
		}
	}
	if r := y.Rules; r != nil {
		setString(&c.Rules.File, r.File)
	}
	if len(y.Backends) > 0 {
		c.Backends = y.Backends
	}
	if t := y.Telemetry; t != nil {
		setBool(&c.Telemetry.Enabled, t.Enabled)
		setString(&c.Telemetry.Endpoint, t.Endpoint)
		setString(&c.Telemetry.ServiceName, t.ServiceName)
	}
	return nil
}

// LoadConfigFromDir loads dir/.env into the environment, then
// dir/.agentic/config.yaml, then applies environment overrides.
// Variables already set in the environment win over .env.
func LoadConfigFromDir(dir string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(filepath.Join(dir, Dir, "config.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadDotEnv loads a .env file without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment overrides read through lookup.
// Setting the OTLP endpoint also enables telemetry.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvTasksFile); ok && v != "" {
		c.TasksFile = v
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		c.LogFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvHistoryDB); ok && v != "" {
		c.History.DBPath = v
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok && v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
}

// AutoFlags carries auto command flags. Nil fields were not set on the
// command line.
type AutoFlags struct {
	MaxIterations   *int
	Delay           *time.Duration
	NoRules         *bool
	Parallel        *bool
	MaxBatch        *int
	ContinueOnError *bool
	TaskTimeout     *time.Duration
	RequireApproval *bool
}

// MergeAutoFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeAutoFlags(f AutoFlags) {
	setInt(&c.Auto.MaxIterations, f.MaxIterations)
	if f.Delay != nil {
		c.Auto.Delay = *f.Delay
	}
	if f.NoRules != nil {
		c.Auto.RulesCheck = !*f.NoRules
	}
	setBool(&c.Auto.Parallel, f.Parallel)
	setInt(&c.Auto.MaxBatch, f.MaxBatch)
	setBool(&c.Auto.ContinueOnError, f.ContinueOnError)
	if f.TaskTimeout != nil {
		c.Auto.TaskTimeout = *f.TaskTimeout
	}
	setBool(&c.Auto.RequireApproval, f.RequireApproval)
}

// BackendCommands returns the configured command per agent type.
func (c *Config) BackendCommands() map[string][]string {
	out := make(map[string][]string, len(c.Backends))
	for agent, b := range c.Backends {
		if len(b.Command) > 0 {
			out[agent] = b.Command
		}
	}
	return out
}

var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.TasksFile == "" {
		return fmt.Errorf("tasks_file cannot be empty")
	}
	if c.LogFile == "" {
		return fmt.Errorf("log_file cannot be empty")
	}
	if c.LogCap < 1 {
		return fmt.Errorf("log_cap must be > 0, got %d", c.LogCap)
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	if c.Auto.MaxIterations < 1 {
		return fmt.Errorf("auto.max_iterations must be > 0, got %d", c.Auto.MaxIterations)
	}
	if c.Auto.Delay < 0 {
		return fmt.Errorf("auto.delay must be >= 0, got %v", c.Auto.Delay)
	}
	if c.Auto.MaxBatch < 1 {
		return fmt.Errorf("auto.max_batch must be > 0, got %d", c.Auto.MaxBatch)
	}
	if c.Auto.TaskTimeout < 0 {
		return fmt.Errorf("auto.task_timeout must be >= 0, got %v", c.Auto.TaskTimeout)
	}
	if c.Auto.RollbackCommand != nil && len(c.Auto.RollbackCommand) == 0 {
		return fmt.Errorf("auto.rollback_command cannot be an empty list")
	}

	agents := make([]string, 0, len(c.Backends))
	for agent := range c.Backends {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	for _, agent := range agents {
		if len(c.Backends[agent].Command) == 0 {
			return fmt.Errorf("backends.%s.command cannot be empty", agent)
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name cannot be empty when telemetry is enabled")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s format %q: %w", key, *v, err)
	}
	*dst = d
	return nil
}
