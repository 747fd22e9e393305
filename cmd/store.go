package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/loanocr/internal/model"
	"github.com/sells-group/loanocr/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "loanocr.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRegistry() (*model.FieldRegistry, error) {
	fields := model.DefaultCatalog()
	if cfg.Catalog.Path != "" {
		loaded, err := model.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		fields = loaded
	}
	if err := model.ValidateCatalog(fields); err != nil {
		return nil, err
	}
	return model.NewFieldRegistry(fields), nil
}
