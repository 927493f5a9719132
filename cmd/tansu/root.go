package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tansu/internal/config"
	"tansu/internal/docstore"
	"tansu/internal/state"
	"tansu/internal/ui"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tansu",
		Short: "Personal task tracker with projects and nested tasks",
		Long: "tansu organizes tasks into projects and lifecycle states\n" +
			"(inbox, today, scheduled, done) with a parent/child task tree.\n" +
			"Running without a subcommand opens the interactive UI.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			confirm := &ui.PromptConfirmer{}
			app, cleanup, err := openApp(cmd.Context(), cfg, confirm)
			if err != nil {
				return err
			}
			defer cleanup()
			return ui.Run(cmd.Context(), app, confirm, cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newAddCmd(&configPath))
	root.AddCommand(newProjectsCmd(&configPath))
	root.AddCommand(newDoneCmd(&configPath))
	return root
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openApp wires the configured backend, logger and state object, and runs
// the initial load (seeding on an empty store). cleanup flushes in-flight
// writes before closing the store.
func openApp(ctx context.Context, cfg config.Config, confirm state.Confirmer) (*state.App, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	logger, logClose := newLogger(cfg)

	app := state.New(store,
		state.WithConfirmer(confirm),
		state.WithLogger(logger),
		state.WithDefaultProject(cfg.DefaultProject),
	)
	if err := app.Load(ctx); err != nil {
		store.Close()
		logClose()
		return nil, nil, fmt.Errorf("load data: %w", err)
	}

	cleanup := func() {
		app.Flush()
		store.Close()
		logClose()
	}
	return app, cleanup, nil
}

func openStore(cfg config.Config) (docstore.Store, error) {
	switch cfg.Backend {
	case config.BackendNeo4j:
		return docstore.OpenNeo4j(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	case config.BackendMemory:
		return docstore.OpenMemory(), nil
	default:
		return docstore.OpenSQLite(cfg.DBPath)
	}
}

// newLogger opens the structured log sink. The TUI owns stdout, so logs go
// to a file; without a configured path they are discarded.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	path := cfg.LogPath
	if path == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}
	}
	return slog.New(slog.NewJSONHandler(f, nil)), func() { f.Close() }
}
