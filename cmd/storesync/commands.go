package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/storesync/internal/configsync"
	"github.com/danmuck/storesync/internal/document"
	"github.com/danmuck/storesync/internal/extensions"
	"github.com/danmuck/storesync/internal/host"
	"github.com/danmuck/storesync/internal/report"
	"github.com/danmuck/storesync/internal/scopes"
	"github.com/danmuck/storesync/internal/store"
	"github.com/danmuck/storesync/internal/tools"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const envDatabaseURL = "DATABASE_URL"

// backend is what config:sync needs from a store.
type backend interface {
	store.ConfigStore
	store.ScopeSource
	Close() error
}

type migrator interface {
	Migrate(ctx context.Context) error
}

type app struct {
	stdout io.Writer
	// newRunner builds the console runner for a project dir.
	newRunner func(projectDir string) tools.CommandRunner
	openStore func(ctx context.Context, dsn string, cfg toolConfig) (backend, error)

	projectDir  string
	toolConfig  string
	dryRun      bool
	refresh     bool
	maxAttempts int
}

func newApp(stdout io.Writer) *app {
	return &app{
		stdout: stdout,
		newRunner: func(projectDir string) tools.CommandRunner {
			return tools.ExecRunner{Dir: projectDir}
		},
		openStore: openSQLStore,
	}
}

func openSQLStore(ctx context.Context, dsn string, cfg toolConfig) (backend, error) {
	var opts []store.SQLOption
	if cfg.CacheSize > 0 {
		opts = append(opts, store.WithCacheSize(cfg.CacheSize))
	}
	st, err := store.Open(ctx, dsn, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("driver", string(st.Driver())).Msg("storesync: store open")
	return st, nil
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "storesync",
		Short:         "Reconcile shop configuration and extensions with checked-in documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(a.stdout)
	root.PersistentFlags().StringVar(&a.projectDir, "project-dir", ".", "shop project root")
	root.PersistentFlags().StringVar(&a.toolConfig, "config", "", "tool config TOML (default <project-dir>/"+defaultToolConfigName+" when present)")

	root.AddCommand(a.configSyncCommand())
	root.AddCommand(a.pluginSyncCommand())
	return root
}

func (a *app) configSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config:sync [config_path]",
		Short: "Apply the config document to the global and sales channel scopes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSync(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "report changes without writing them")
	return cmd
}

func (a *app) pluginSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin:sync [plugins_path]",
		Short: "Install or uninstall plugins as defined in the plugins document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPluginSync(cmd.Context(), args, cmd.Flags().Changed("max-attempts"))
		},
	}
	cmd.Flags().BoolVar(&a.refresh, "refresh", false, "run plugin:refresh before syncing")
	cmd.Flags().IntVar(&a.maxAttempts, "max-attempts", 1, "install passes per group while base classes are missing")
	return cmd
}

func (a *app) runConfigSync(ctx context.Context, args []string) error {
	cfg, env, err := a.loadSettings()
	if err != nil {
		return err
	}
	out := report.NewWriter(a.stdout)

	path := a.documentPath(args, cfg.ConfigPath)
	doc, err := document.LoadConfig(path)
	if errors.Is(err, document.ErrNotFound) {
		report.Writef(out, "%s not found", path)
		return exitError{code: 1}
	}
	if err != nil {
		return err
	}

	dsn := databaseURL(cfg, env)
	if dsn == "" {
		return fmt.Errorf("%s is not set (environment, %s/.env or database_url)", envDatabaseURL, a.projectDir)
	}
	st, err := a.openStore(ctx, dsn, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("storesync: close store")
		}
	}()
	if m, ok := st.(migrator); ok && cfg.AutoMigrate {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}

	rec := configsync.NewReconciler(st, scopes.NewResolver(st),
		configsync.WithWriteFailurePolicy(cfg.WriteFailurePolicy),
		configsync.WithDryRun(a.dryRun),
	)
	rep, err := rec.Run(ctx, doc, out)
	if err != nil {
		return err
	}
	if cfg.FailOnWriteError && rep.WriteErrors > 0 {
		return exitError{code: 1}
	}
	return nil
}

func (a *app) runPluginSync(ctx context.Context, args []string, attemptsFlagSet bool) error {
	cfg, _, err := a.loadSettings()
	if err != nil {
		return err
	}
	out := report.NewWriter(a.stdout)

	path := a.documentPath(args, cfg.PluginsPath)
	raw, err := document.LoadExtensions(path)
	if errors.Is(err, document.ErrNotFound) {
		report.Writef(out, "%s not found", path)
		return exitError{code: 1}
	}
	if err != nil {
		return err
	}
	groups, err := extensions.ParseTable(raw, cfg.GroupOrder)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	console := host.NewConsole(host.ConsoleConfig{
		Command: cfg.Console,
		Runner:  a.newRunner(a.projectDir),
	})
	if a.refresh {
		if err := console.Refresh(ctx); err != nil {
			return err
		}
	}

	attempts := cfg.MaxAttempts
	if attemptsFlagSet {
		attempts = a.maxAttempts
	}
	res, err := extensions.NewReconciler(console,
		extensions.WithMaxAttempts(attempts),
		extensions.WithBackoff(cfg.Backoff),
	).Run(ctx, groups, out)
	if err != nil {
		return err
	}
	if res.Failed() {
		return exitError{code: 1}
	}
	return nil
}

// loadSettings resolves the tool config and the project .env.
func (a *app) loadSettings() (toolConfig, map[string]string, error) {
	cfg := defaultToolConfig()

	path := a.toolConfig
	if path == "" {
		candidate := filepath.Join(a.projectDir, defaultToolConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		loaded, err := loadToolConfig(path)
		if err != nil {
			return toolConfig{}, nil, err
		}
		cfg = loaded
	}

	env, err := godotenv.Read(filepath.Join(a.projectDir, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return toolConfig{}, nil, fmt.Errorf("read %s/.env: %w", a.projectDir, err)
	}
	return cfg, env, nil
}

func (a *app) documentPath(args []string, fallback string) string {
	path := fallback
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		path = args[0]
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.projectDir, path)
}

// databaseURL prefers the process environment, then the project .env, then
// the tool config.
func databaseURL(cfg toolConfig, env map[string]string) string {
	if v := strings.TrimSpace(os.Getenv(envDatabaseURL)); v != "" {
		return v
	}
	if v := strings.TrimSpace(env[envDatabaseURL]); v != "" {
		return v
	}
	return cfg.DatabaseURL
}
