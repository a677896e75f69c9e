package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/questsync/internal/app"
	"github.com/abhisek/questsync/internal/catalog"
	"github.com/abhisek/questsync/internal/logging"
	"github.com/abhisek/questsync/internal/metrics"
	"github.com/abhisek/questsync/internal/settings"
	"github.com/abhisek/questsync/internal/store"
)

// runtimeEnv holds everything a command needs, built once per invocation.
type runtimeEnv struct {
	settings *settings.Store
	cfg      settings.Config
	logger   *slog.Logger
	db       *store.Store
	metrics  *metrics.Metrics
	engine   *app.Engine
}

// openSettings loads the configuration file and builds the logger.
func openSettings(cmd *cobra.Command) (*settings.Store, settings.Config, *slog.Logger, error) {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		d, err := settings.DefaultDir()
		if err != nil {
			return nil, settings.Config{}, nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = d
	}
	st := settings.NewStore(dir)
	cfg, err := st.LoadOrInit()
	if err != nil {
		return nil, settings.Config{}, nil, fmt.Errorf("load settings: %w", err)
	}

	level := cfg.LogLevel
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	logger := logging.NewLogger(logging.Options{
		Level:     level,
		Writer:    cmd.ErrOrStderr(),
		Component: "questsync",
	})
	return st, cfg, logger, nil
}

// openDB opens the SQLite store at the resolved path.
func openDB(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// openEnv loads settings, the catalog and saved progress.
func openEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	st, cfg, logger, err := openSettings(cmd)
	if err != nil {
		return nil, err
	}

	catalogPath := cfg.CatalogPath
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		catalogPath = p
	}
	if catalogPath == "" {
		return nil, fmt.Errorf("no catalog configured: pass --catalog or set catalog_path in %s", st.Path())
	}
	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	db, err := openDB(cmd)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	engine, err := app.New(cmd.Context(), app.Options{
		Catalog:  cat,
		Sink:     store.NewProgressSink(db, cfg.Sync.SnapshotKeep),
		Level:    st,
		Recorder: db,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &runtimeEnv{
		settings: st,
		cfg:      cfg,
		logger:   logger,
		db:       db,
		metrics:  m,
		engine:   engine,
	}, nil
}

func (e *runtimeEnv) Close() {
	if e.db != nil {
		e.db.Close()
	}
}
