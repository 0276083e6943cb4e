package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/taxakollen/taxa-cli/internal/reference"
	"github.com/taxakollen/taxa-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "taxa.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadTables() (*reference.Tables, error) {
	if cfg.Reference.Path == "" {
		return reference.Default(), nil
	}
	return reference.Load(cfg.Reference.Path)
}
