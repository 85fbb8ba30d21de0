package main

import (
	"go.uber.org/zap"

	"github.com/user/messagely-go/auth"
	"github.com/user/messagely-go/config"
	"github.com/user/messagely-go/db"
	"github.com/user/messagely-go/memstore"
	"github.com/user/messagely-go/messages"
	"github.com/user/messagely-go/users"
)

// storage groups the stores behind whichever driver STORAGE_DRIVER selected.
type storage struct {
	credentials auth.CredentialStore
	messages    messages.Store
	directory   users.Directory
	close       func()
}

// openStorage connects the configured driver. With migrate set, the Postgres
// schema is brought up to date before the pool is opened.
func openStorage(cfg *config.AppConfig, migrate bool, logger *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on exit")
		return newMemoryStorage(), nil
	}

	if migrate {
		if err := db.RunMigrations(cfg.DB); err != nil {
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database",
		zap.String("host", cfg.DB.Host),
		zap.String("database", cfg.DB.DBName),
		zap.Int("max_conns", cfg.DB.MaxSize))

	return &storage{
		credentials: auth.NewPostgresCredentialStore(pool),
		messages:    messages.NewPostgresStore(pool),
		directory:   users.NewPostgresDirectory(pool),
		close:       pool.Close,
	}, nil
}

func newMemoryStorage() *storage {
	store := memstore.New()
	return &storage{
		credentials: store,
		messages:    store,
		directory:   store,
		close:       func() {},
	}
}
