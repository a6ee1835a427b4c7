package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/logger"
	"mediavault/internal/infrastructure/observability"
	repo "mediavault/internal/infrastructure/repository/media"
	"mediavault/internal/interfaces/httpserver"
	"mediavault/utils/mediaid"
)

// Application runs the HTTP server next to the metadata availability monitor.
type Application struct {
	cfg        *config.Config
	httpServer *httpserver.HttpServer
	repository *repo.Repository
	log        zerolog.Logger
}

func NewApplication(cfg *config.Config, httpServer *httpserver.HttpServer, repository *repo.Repository, log zerolog.Logger) *Application {
	return &Application{
		cfg:        cfg,
		httpServer: httpServer,
		repository: repository,
		log:        log,
	}
}

// Start blocks until ctx is cancelled or a component fails.
func (a *Application) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.httpServer.Run(gctx)
	})
	if a.cfg.HasDatabase() {
		g.Go(func() error {
			return a.repository.Monitor(gctx, a.cfg.DBProbeInterval)
		})
	}
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	mediaRepository := newRepository(ctx, cfg, newDatabaseConfig(cfg), log)
	defer func() {
		if err := mediaRepository.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	blobStore, err := provideStorage(ctx, cfg, mediaid.NewGenerator(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	mediaService := domain.NewService(cfg, blobStore, mediaRepository, log)
	httpServer := httpserver.New(cfg, log, mediaService)
	app := NewApplication(cfg, httpServer, mediaRepository, log)

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
