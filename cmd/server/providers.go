package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/database"
	repo "mediavault/internal/infrastructure/repository/media"
	"mediavault/internal/infrastructure/storage"
)

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DBPostgresqlWriteDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

// newConnector opens and migrates the metadata database. The repository
// calls it again from its probe loop while degraded.
func newConnector(dbConfig database.Config, log zerolog.Logger) repo.Connector {
	return func(ctx context.Context) (*gorm.DB, error) {
		db, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db, log); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return db, nil
	}
}

// newRepository never fails: without a reachable database the repository
// starts degraded and the monitor keeps trying.
func newRepository(ctx context.Context, cfg *config.Config, dbConfig database.Config, log zerolog.Logger) *repo.Repository {
	if !cfg.HasDatabase() {
		log.Warn().Msg("DB_POSTGRESQL_WRITE_DSN not set, metadata store disabled")
		return repo.NewRepository(nil, nil, log)
	}

	connect := newConnector(dbConfig, log)
	connectCtx, cancel := context.WithTimeout(ctx, cfg.DBProbeInterval)
	defer cancel()

	db, err := connect(connectCtx)
	if err != nil {
		log.Warn().Err(err).Msg("metadata database unreachable, starting in degraded mode")
		return repo.NewRepository(nil, connect, log)
	}
	return repo.NewRepository(db, connect, log)
}

// provideStorage creates the blob backend selected by MEDIA_STORAGE_BACKEND.
func provideStorage(ctx context.Context, cfg *config.Config, gen storage.TokenGenerator, log zerolog.Logger) (domain.BlobStore, error) {
	switch {
	case cfg.IsS3Storage():
		s3Storage, err := storage.NewS3Storage(ctx, cfg, gen, log)
		if err != nil {
			return nil, err
		}
		return s3Storage, nil
	case cfg.IsMinIOStorage():
		minioStorage, err := storage.NewMinIOStorage(ctx, cfg, gen, log)
		if err != nil {
			return nil, err
		}
		return minioStorage, nil
	default:
		localStorage, err := storage.NewLocalStorage(cfg, gen, log)
		if err != nil {
			return nil, err
		}
		return localStorage, nil
	}
}
