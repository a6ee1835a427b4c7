//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/logger"
	repo "mediavault/internal/infrastructure/repository/media"
	"mediavault/internal/infrastructure/storage"
	"mediavault/internal/interfaces/httpserver"
	"mediavault/utils/mediaid"
)

var mediaSet = wire.NewSet(
	newDatabaseConfig,
	newRepository,
	wire.Bind(new(domain.MetadataStore), new(*repo.Repository)),
	mediaid.NewGenerator,
	wire.Bind(new(storage.TokenGenerator), new(*mediaid.Generator)),
	provideStorage,
	domain.NewService,
)

// BuildApplication assembles the media API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		mediaSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
