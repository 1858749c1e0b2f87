package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/handlers"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/queue"
	"github.com/ternarybob/corpus/internal/services/cleanup"
	"github.com/ternarybob/corpus/internal/services/embeddings"
	"github.com/ternarybob/corpus/internal/services/ingest"
	"github.com/ternarybob/corpus/internal/services/ledger"
	"github.com/ternarybob/corpus/internal/services/llm"
	"github.com/ternarybob/corpus/internal/services/parsejobs"
	"github.com/ternarybob/corpus/internal/services/pdf"
	"github.com/ternarybob/corpus/internal/services/retrieval"
	"github.com/ternarybob/corpus/internal/services/similarity"
	badgerstore "github.com/ternarybob/corpus/internal/storage/badger"
	"github.com/ternarybob/corpus/internal/storage/objects"
	"github.com/ternarybob/corpus/internal/workers"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	StorageManager interfaces.StorageManager
	ObjectStorage  interfaces.ObjectStorage

	// Queue and workers
	Queue      *queue.BadgerQueue
	JobQueue   interfaces.JobQueue
	WorkerPool *queue.WorkerPool

	// Core services
	EmbeddingService interfaces.EmbeddingService
	SimilarityEngine *similarity.Engine
	CreditLedger     interfaces.CreditLedger
	IngestService    interfaces.IngestService
	LLMService       interfaces.LLMService
	RetrievalService interfaces.RetrievalService
	ParseJobService  interfaces.ParseJobService
	CleanupService   *cleanup.Service
	CleanupScheduler *cleanup.Scheduler

	// HTTP handlers
	IngestHandler  *handlers.IngestHandler
	JobHandler     *handlers.JobHandler
	QueryHandler   *handlers.QueryHandler
	CleanupHandler *handlers.CleanupHandler
	StatusHandler  *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// Workers start only after every service they depend on exists
	app.WorkerPool.Start()

	if cfg.Cleanup.Enabled {
		if err := app.CleanupScheduler.Start(cfg.Cleanup.Schedule); err != nil {
			return nil, fmt.Errorf("failed to start cleanup scheduler: %w", err)
		}
	}

	logger.Info().
		Str("embedding_provider", cfg.Embedding.Provider).
		Bool("llm_enabled", app.LLMService != nil).
		Bool("cleanup_enabled", cfg.Cleanup.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes Badger and the filesystem object store
func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = manager

	objectStore, err := objects.NewFilesystemStorage(a.Config.Storage.Objects.Dir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create object storage: %w", err)
	}
	a.ObjectStorage = objectStore

	a.Logger.Debug().
		Str("badger_path", a.Config.Storage.Badger.Path).
		Str("objects_dir", a.Config.Storage.Objects.Dir).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices(ctx context.Context) error {
	var err error

	// Queue rides on the same Badger instance as the stores
	badgerManager, ok := a.StorageManager.(*badgerstore.Manager)
	if !ok {
		return fmt.Errorf("storage manager is not Badger-backed (got %T)", a.StorageManager)
	}

	a.Queue, err = queue.NewBadgerQueue(
		badgerManager.DB().Store().Badger(),
		a.Config.Queue.QueueName,
		parseDuration(a.Config.Queue.VisibilityTimeout, 5*time.Minute),
		a.Config.Queue.MaxReceive,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}
	a.JobQueue = queue.NewJobQueue(a.Queue)

	a.EmbeddingService, err = embeddings.NewService(ctx, &a.Config.Embedding, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding service: %w", err)
	}

	a.SimilarityEngine = similarity.NewEngine(
		a.StorageManager.ChunkStorage(),
		a.Config.Ingest.DuplicateThreshold,
		a.Logger,
	)

	a.CreditLedger = ledger.NewService(
		a.StorageManager.LedgerStorage(),
		a.Config.Ingest.MaxStoreBytes,
		a.Logger,
	)

	a.IngestService = ingest.NewService(
		a.StorageManager,
		a.EmbeddingService,
		a.SimilarityEngine,
		&a.Config.Ingest,
		a.CreditLedger,
		a.Logger,
	)

	// Claude is optional; without it accurate-mode queries are rejected
	if a.Config.Claude.APIKey != "" {
		claudeService, err := llm.NewClaudeService(&a.Config.Claude, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to initialize Claude service - accurate mode will be unavailable")
		} else {
			a.LLMService = claudeService
		}
	} else {
		a.Logger.Info().Msg("No Anthropic API key configured - accurate mode will be unavailable")
	}

	a.RetrievalService = retrieval.NewService(
		a.StorageManager.ChunkStorage(),
		a.EmbeddingService,
		a.LLMService,
		a.CreditLedger,
		&a.Config.Credits,
		a.Logger,
	)

	extractor := pdf.NewExtractor(a.Logger)
	a.ParseJobService = parsejobs.NewService(
		a.StorageManager.JobStorage(),
		a.ObjectStorage,
		a.JobQueue,
		a.CreditLedger,
		extractor,
		&a.Config.Credits,
		a.Logger,
	)

	a.CleanupService = cleanup.NewService(
		a.StorageManager.ChunkStorage(),
		a.StorageManager.DocumentStorage(),
		a.Logger,
	)
	a.CleanupScheduler = cleanup.NewScheduler(a.CleanupService, a.Logger)

	parseWorker := workers.NewParseWorker(
		a.ParseJobService,
		a.ObjectStorage,
		a.IngestService,
		extractor,
		a.Logger,
	)

	a.WorkerPool = queue.NewWorkerPool(
		a.Queue,
		a.Logger,
		a.Config.Queue.Concurrency,
		parseDuration(a.Config.Queue.PollInterval, time.Second),
	)
	a.WorkerPool.RegisterHandler(queue.MessageTypeParseJob, parseWorker)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.IngestHandler = handlers.NewIngestHandler(a.IngestService, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.ParseJobService, a.Logger)
	a.QueryHandler = handlers.NewQueryHandler(a.RetrievalService, a.Logger)
	a.CleanupHandler = handlers.NewCleanupHandler(a.CleanupService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.CleanupService, a.Logger)
}

// Close closes all application resources in reverse dependency order
func (a *App) Close() error {
	if a.CleanupScheduler != nil && a.Config.Cleanup.Enabled {
		a.CleanupScheduler.Stop()
	}

	if a.WorkerPool != nil {
		a.WorkerPool.Stop()
		a.Logger.Info().Msg("Worker pool stopped")
	}

	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close queue")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
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

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
