package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"github.com/ternarybob/recall/internal/services/cache"
	"github.com/ternarybob/recall/internal/services/chunker"
	"github.com/ternarybob/recall/internal/services/documents"
	"github.com/ternarybob/recall/internal/services/events"
	"github.com/ternarybob/recall/internal/services/index"
	"github.com/ternarybob/recall/internal/services/search"
	"github.com/ternarybob/recall/internal/services/transform"
	"github.com/ternarybob/recall/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	EventService     interfaces.EventService
	ChunkerService   interfaces.ChunkerService
	TransformService interfaces.TransformService
	IndexService     interfaces.IndexService
	SearchService    interfaces.SearchService
	DocumentService  interfaces.DocumentService

	IndexRefresher *index.Refresher
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	app.EventService = events.NewService(logger)
	app.ChunkerService = chunker.NewService(logger)
	app.TransformService = transform.NewService(logger)

	documentStorage := storageManager.DocumentStorage()

	app.IndexService = index.NewService(documentStorage, &cfg.Index, logger)

	metaCache := cache.New[*models.Document]("metadata", cfg.Cache.Metadata.MaxEntries, cfg.Cache.Metadata.TTL, logger)
	chunkCache := cache.New[[]*models.Chunk]("chunks", cfg.Cache.Chunks.MaxEntries, cfg.Cache.Chunks.TTL, logger)

	app.SearchService = search.NewService(documentStorage, app.IndexService, chunkCache, &cfg.Search, logger)

	app.DocumentService = documents.NewService(
		documentStorage,
		app.ChunkerService,
		app.TransformService,
		app.IndexService,
		app.SearchService,
		app.EventService,
		metaCache,
		chunkCache,
		&cfg.Chunking,
		logger,
	)

	app.IndexRefresher = index.NewRefresher(app.IndexService, storageManager, app.EventService, logger)
	if err := app.IndexRefresher.Start(cfg.Index.Schedule); err != nil {
		return nil, fmt.Errorf("failed to start index refresher: %w", err)
	}

	logger.Info().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Application initialization complete")

	return app, nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.IndexRefresher != nil {
		a.IndexRefresher.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
