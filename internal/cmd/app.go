package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/config"
	"github.com/chibuenyim/Agentic-Toolkit/internal/execlog"
	"github.com/chibuenyim/Agentic-Toolkit/internal/executor"
	"github.com/chibuenyim/Agentic-Toolkit/internal/history"
	"github.com/chibuenyim/Agentic-Toolkit/internal/logger"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

// app is the per-invocation state shared by every subcommand.
type app struct {
	dir    string
	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	log    *logger.ConsoleLogger
}

// newApp loads configuration for cmd: <dir>/.env, then the config file,
// then environment overrides, then persistent flags.
func newApp(cmd *cobra.Command) (*app, error) {
	dir, _ := cmd.Flags().GetString("dir")
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		if err := config.LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
			return nil, err
		}
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		cfg.ApplyEnv(os.LookupEnv)
	} else {
		cfg, err = config.LoadConfigFromDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cmd.Flags().Changed("tasks") {
		cfg.TasksFile, _ = cmd.Flags().GetString("tasks")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &app{
		dir:    dir,
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		log:    logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel),
	}, nil
}

// path resolves p against the working directory.
func (a *app) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.dir, p)
}

func (a *app) tasksPath() string {
	return a.path(a.cfg.TasksFile)
}

// openStore loads the task document. A corrupt document is reported and
// treated as empty; callers that write must check the returned error.
func (a *app) openStore() (*store.Store, error) {
	s := store.New(a.tasksPath())
	err := s.Load()
	var loadErr *store.LoadError
	if errors.As(err, &loadErr) {
		a.log.LogWarn(fmt.Sprintf("Task document unusable, treating it as empty: %v", err))
		return s, err
	}
	return s, nil
}

func (a *app) openLog() *execlog.Log {
	return execlog.New(a.path(a.cfg.LogFile), execlog.WithCap(a.cfg.LogCap))
}

// openHistory returns nil when history is disabled.
func (a *app) openHistory() (*history.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	h, err := history.Open(a.path(a.cfg.History.DBPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return h, nil
}

func (a *app) rulesPath() string {
	return a.path(a.cfg.Rules.File)
}

// loadRules returns the default rules overlaid with the rules file.
func (a *app) loadRules() (*rules.Engine, error) {
	e := rules.NewEngine()
	if _, err := e.LoadFile(a.rulesPath()); err != nil {
		return nil, err
	}
	return e, nil
}

// describedError keeps the cause for errors.Is while printing the
// operator-facing description.
type describedError struct{ err error }

func (e *describedError) Error() string { return executor.Describe(e.err) }
func (e *describedError) Unwrap() error { return e.err }

func describe(err error) error {
	if err == nil {
		return nil
	}
	return &describedError{err: err}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
