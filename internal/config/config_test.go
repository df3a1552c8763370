package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TasksFile != "tasks.json" {
		t.Errorf("TasksFile = %q, want %q", cfg.TasksFile, "tasks.json")
	}
	if cfg.LogCap != 1000 {
		t.Errorf("LogCap = %d, want 1000", cfg.LogCap)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Auto.MaxIterations != 100 {
		t.Errorf("Auto.MaxIterations = %d, want 100", cfg.Auto.MaxIterations)
	}
	if cfg.Auto.Delay != 2*time.Second {
		t.Errorf("Auto.Delay = %v, want 2s", cfg.Auto.Delay)
	}
	if !cfg.Auto.RulesCheck {
		t.Error("Auto.RulesCheck = false, want true")
	}
	if cfg.Auto.MaxBatch != 3 {
		t.Errorf("Auto.MaxBatch = %d, want 3", cfg.Auto.MaxBatch)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `tasks_file: plan/tasks.json
log_level: debug
log_cap: 50
history:
  enabled: false
auto:
  max_iterations: 10
  delay: 500ms
  rules_check: false
  parallel: true
  task_timeout: 5m
backends:
  testing_agent:
    command: ["go", "test", "./..."]
telemetry:
  endpoint: localhost:4318
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.TasksFile != "plan/tasks.json" {
		t.Errorf("TasksFile = %q", cfg.TasksFile)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogCap != 50 {
		t.Errorf("LogCap = %d, want 50", cfg.LogCap)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.DBPath != filepath.Join(Dir, "history.db") {
		t.Errorf("History.DBPath = %q, want default", cfg.History.DBPath)
	}
	if cfg.Auto.MaxIterations != 10 {
		t.Errorf("Auto.MaxIterations = %d, want 10", cfg.Auto.MaxIterations)
	}
	if cfg.Auto.Delay != 500*time.Millisecond {
		t.Errorf("Auto.Delay = %v, want 500ms", cfg.Auto.Delay)
	}
	if cfg.Auto.RulesCheck {
		t.Error("Auto.RulesCheck = true, want false")
	}
	if !cfg.Auto.Parallel {
		t.Error("Auto.Parallel = false, want true")
	}
	if cfg.Auto.MaxBatch != 3 {
		t.Errorf("Auto.MaxBatch = %d, want default 3", cfg.Auto.MaxBatch)
	}
	if cfg.Auto.TaskTimeout != 5*time.Minute {
		t.Errorf("Auto.TaskTimeout = %v, want 5m", cfg.Auto.TaskTimeout)
	}
	if got := cfg.BackendCommands()["testing_agent"]; len(got) != 3 || got[0] != "go" {
		t.Errorf("BackendCommands()[testing_agent] = %v", got)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled should stay false unless set")
	}
	if cfg.Telemetry.ServiceName != "agentic" {
		t.Errorf("Telemetry.ServiceName = %q, want default", cfg.Telemetry.ServiceName)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"malformed yaml", "auto: [", "failed to parse config file"},
		{"bad delay", "auto:\n  delay: soon\n", "invalid auto.delay"},
		{"bad timeout", "auto:\n  task_timeout: 5\n", "invalid auto.task_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTasksFile:    "other.json",
		EnvLogLevel:     "warn",
		EnvOTLPEndpoint: "collector:4318",
		EnvLogFile:      "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv(lookup)

	if cfg.TasksFile != "other.json" {
		t.Errorf("TasksFile = %q, want other.json", cfg.TasksFile)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.LogFile != "execution-log.json" {
		t.Errorf("empty override should be ignored, LogFile = %q", cfg.LogFile)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4318" {
		t.Errorf("Telemetry = %+v, want enabled with endpoint", cfg.Telemetry)
	}
}

func TestLoadConfigFromDirReadsDotEnv(t *testing.T) {
	if _, set := os.LookupEnv(EnvTasksFile); set {
		t.Skipf("%s already set in the environment", EnvTasksFile)
	}
	t.Cleanup(func() { os.Unsetenv(EnvTasksFile) })

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, Dir, "config.yaml"), []byte("tasks_file: from-config.json\nlog_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvTasksFile+"=from-env.json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.TasksFile != "from-env.json" {
		t.Errorf("TasksFile = %q, want the .env value to win over config", cfg.TasksFile)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestMergeAutoFlags(t *testing.T) {
	cfg := DefaultConfig()
	iterations := 7
	noRules := true
	delay := 250 * time.Millisecond

	cfg.MergeAutoFlags(AutoFlags{
		MaxIterations: &iterations,
		NoRules:       &noRules,
		Delay:         &delay,
	})

	if cfg.Auto.MaxIterations != 7 {
		t.Errorf("Auto.MaxIterations = %d, want 7", cfg.Auto.MaxIterations)
	}
	if cfg.Auto.RulesCheck {
		t.Error("--no-rules should disable the rules check")
	}
	if cfg.Auto.Delay != delay {
		t.Errorf("Auto.Delay = %v, want %v", cfg.Auto.Delay, delay)
	}
	if cfg.Auto.MaxBatch != 3 {
		t.Errorf("unset flags must not change config, MaxBatch = %d", cfg.Auto.MaxBatch)
	}
	if cfg.Auto.RequireApproval {
		t.Error("approval is off unless requested")
	}

	approve := true
	cfg.MergeAutoFlags(AutoFlags{RequireApproval: &approve})
	if !cfg.Auto.RequireApproval {
		t.Error("--require-approval should enable approval")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"zero log cap", func(c *Config) { c.LogCap = 0 }, true},
		{"empty tasks file", func(c *Config) { c.TasksFile = "" }, true},
		{"history without path", func(c *Config) { c.History.DBPath = "" }, true},
		{"history disabled without path", func(c *Config) { c.History.Enabled = false; c.History.DBPath = "" }, false},
		{"zero iterations", func(c *Config) { c.Auto.MaxIterations = 0 }, true},
		{"negative delay", func(c *Config) { c.Auto.Delay = -time.Second }, true},
		{"zero batch", func(c *Config) { c.Auto.MaxBatch = 0 }, true},
		{"negative timeout", func(c *Config) { c.Auto.TaskTimeout = -time.Second }, true},
		{"empty rollback command", func(c *Config) { c.Auto.RollbackCommand = []string{} }, true},
		{"rollback command", func(c *Config) { c.Auto.RollbackCommand = []string{"git", "checkout", "."} }, false},
		{"empty backend command", func(c *Config) {
			c.Backends = map[string]BackendConfig{"testing_agent": {}}
		}, true},
		{"telemetry without service name", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.ServiceName = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
