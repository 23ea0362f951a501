package app

import (
	"context"
	"fmt"

	"whiteboard/internal/config"
	"whiteboard/internal/domain"
	"whiteboard/internal/service"
	"whiteboard/internal/storage"
)

// stores bundles the persistence backends selected by configuration.
type stores struct {
	objects domain.ObjectSync
	history domain.HistoryStore
	pruner  service.HistoryPruner

	// sqlitePath is the database file when the board lives in sqlite. It is
	// what the board watcher follows to notice writes from other processes.
	sqlitePath string

	close func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		m := storage.NewMemoryStore()
		return &stores{
			objects: m,
			history: m,
			pruner:  m,
			close:   func(context.Context) error { return nil },
		}, nil

	case "mongodb":
		m, err := storage.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &stores{objects: m, history: m, pruner: m, close: m.Close}, nil

	case storage.DriverSQLite, storage.DriverPostgres, storage.DriverMySQL:
		dsn := cfg.DSN
		if cfg.Driver == storage.DriverSQLite {
			dsn = cfg.SQLitePath()
		}
		db, err := storage.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, err
		}
		hs := storage.NewHistoryStore(db)
		return &stores{
			objects:    storage.NewObjectStore(db),
			history:    hs,
			pruner:     hs,
			sqlitePath: db.Path(),
			close:      func(context.Context) error { return db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
}
