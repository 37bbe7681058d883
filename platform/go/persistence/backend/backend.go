// Package backend opens the persistence.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/memory"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/sqlite"
)

const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	Memory   = "memory"
)

type Config struct {
	Backend    string
	Postgres   persistence.PostgresConfig
	SQLitePath string
	// Bootstrap applies the Postgres DDL on open. SQLite always applies its schema.
	Bootstrap bool
}

// Open returns the configured store. Callers Close it on shutdown.
func Open(ctx context.Context, cfg Config) (persistence.Store, error) {
	switch cfg.Backend {
	case "", SQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case Postgres:
		pool, err := persistence.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Bootstrap {
			if err := persistence.BootstrapSchema(ctx, pool); err != nil {
				persistence.ClosePool(pool)
				return nil, err
			}
		}
		store, err := persistence.NewPostgresStore(pool)
		if err != nil {
			persistence.ClosePool(pool)
			return nil, err
		}
		return store, nil
	case Memory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
