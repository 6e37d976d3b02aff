// Package store expone el factory de repositorios según el driver configurado.
package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/cogmesh/internal/config"
	"github.com/dropDatabas3/cogmesh/internal/store/adapters/memory"
	"github.com/dropDatabas3/cogmesh/internal/store/adapters/pg"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// New crea el Repository según cfg.Storage.Driver ("postgres" | "memory").
func New(ctx context.Context, cfg config.Config) (core.Repository, error) {
	switch cfg.Storage.Driver {
	case "postgres", "pg":
		return pg.New(ctx, pg.Config{
			DSN:             cfg.Storage.DSN,
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.PostgresConnMaxLifetime(),
		})
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Storage.Driver)
	}
}
