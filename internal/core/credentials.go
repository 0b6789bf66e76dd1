package core

import (
	"fmt"

	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	"accountsec/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewCredentialStore(config models.CredentialsConfiguration) (credentials.IStore, error) {
	var store credentials.IStore
	var err error

	switch config.Type {
	case configuration.StoreMemory:
		store = credentials.NewMemoryStore()
	case configuration.StoreFilesystem:
		store, err = credentials.NewFilesystemStore(config.Filesystem.Path, config.Key)
	case configuration.StoreRedis:
		store, err = credentials.NewRueidisStore(*config.Redis, config.Key)
	case configuration.StoreSQLite, configuration.StorePostgres:
		store, err = newSQLCredentialStore(config)
	default:
		return nil, fmt.Errorf("unknown credential store type %q", config.Type)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("Credential store ready", zap.String("type", config.Type))
	return store, nil
}

func newSQLCredentialStore(config models.CredentialsConfiguration) (credentials.IStore, error) {
	dialector := sqlite.Open(config.SQL.DSN)
	if config.Type == configuration.StorePostgres {
		dialector = postgres.Open(config.SQL.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s credential database: %w", config.Type, err)
	}
	return credentials.NewSQLStore(db, config.Key)
}
