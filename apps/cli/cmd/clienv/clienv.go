// Package clienv opens the store, the asset backend and the logger for CLI commands.
package clienv

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/backend"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
)

// Config mirrors the API server variables the CLI needs. Flags override the environment.
type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"warn"`
	StoreBackend    string `env:"STORE_BACKEND" envDefault:"sqlite"`
	Postgres        persistence.PostgresConfig
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"./.data/gacha.db"`
	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"local"`
	StorageBucket   string `env:"STORAGE_BUCKET"`
	StorageLocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/uploads"`
	EnvKey          string `env:"ENV_KEY" envDefault:"dev"`
	SessionSecret   string `env:"SESSION_SECRET"`
}

// Load parses the environment and applies any flags set on cmd.
func Load(cmd *cobra.Command) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.StoreBackend, _ = flags.GetString("store")
	}
	if flags.Changed("database-url") {
		cfg.Postgres.URL, _ = flags.GetString("database-url")
	}
	if flags.Changed("sqlite-path") {
		cfg.SQLitePath, _ = flags.GetString("sqlite-path")
	}
	return cfg, nil
}

// Env is an opened runtime for one command invocation.
type Env struct {
	Config Config
	Store  persistence.Store
	Assets storage.Store
	Logger *zap.Logger

	closeAssets func() error
}

// Open loads the configuration and opens the store and asset backend.
// bootstrap applies the Postgres schema before returning.
func Open(ctx context.Context, cmd *cobra.Command, bootstrap bool) (*Env, error) {
	cfg, err := Load(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "gacha-cli",
		Level:     cfg.LogLevel,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := backend.Open(ctx, backend.Config{
		Backend:    cfg.StoreBackend,
		Postgres:   cfg.Postgres,
		SQLitePath: cfg.SQLitePath,
		Bootstrap:  bootstrap,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	assets, closeAssets, err := storage.Open(ctx, storage.Config{
		Backend:  cfg.StorageBackend,
		Bucket:   cfg.StorageBucket,
		LocalDir: cfg.StorageLocalDir,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open asset storage: %w", err)
	}

	return &Env{Config: cfg, Store: store, Assets: assets, Logger: logger, closeAssets: closeAssets}, nil
}

// Close releases the store and the asset client.
func (e *Env) Close() error {
	_ = e.Logger.Sync()
	return errors.Join(e.Store.Close(), e.closeAssets())
}

// AddStoreFlags registers the persistent store selection flags on cmd.
func AddStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("store", "", "store backend (sqlite, postgres, memory); defaults to STORE_BACKEND")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string; defaults to DATABASE_URL")
	cmd.PersistentFlags().String("sqlite-path", "", "SQLite database file; defaults to SQLITE_PATH")
}
