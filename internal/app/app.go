package app

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/handlers"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
	"github.com/ternarybob/scribe/internal/pipeline"
	"github.com/ternarybob/scribe/internal/queue"
	"github.com/ternarybob/scribe/internal/services/cluster"
	"github.com/ternarybob/scribe/internal/services/crawler"
	"github.com/ternarybob/scribe/internal/services/events"
	"github.com/ternarybob/scribe/internal/services/images"
	"github.com/ternarybob/scribe/internal/services/linker"
	"github.com/ternarybob/scribe/internal/services/llm"
	"github.com/ternarybob/scribe/internal/services/publish"
	"github.com/ternarybob/scribe/internal/services/research"
	"github.com/ternarybob/scribe/internal/services/scheduler"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

// recoveryJobName is the scheduler entry for the stuck-job sweep
const recoveryJobName = "recover_stuck_jobs"

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService *scheduler.Service
	EventSink        interfaces.EventSink

	// Generation services
	LLMFactory       *llm.ProviderFactory
	TextService      interfaces.TextService
	CrawlerService   *crawler.Service
	ResearchService  interfaces.ResearchService
	ImageService     interfaces.ImageService
	Pipeline         *pipeline.Controller
	LinkerService    *linker.Service
	ClusterGenerator *cluster.Generator
	Publisher        *publish.Publisher

	// Job execution
	JobQueue   *queue.JobQueue
	WorkerPool *queue.WorkerPool

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	JobHandler     *handlers.JobHandler
	PostHandler    *handlers.PostHandler
	WebsiteHandler *handlers.WebsiteHandler
	ClusterHandler *handlers.ClusterHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes storage, services and handlers. Background work does not run
// until Start is called, so CLI commands can use the same wiring.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.EventService = events.NewService(app.Logger)

	if err := app.initServices(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if cfg.Metrics.Enabled {
		metrics.Init(common.GetVersion(), cfg.Environment)
	}

	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Bool("images_enabled", cfg.Images.Enabled).
		Bool("linker_enabled", cfg.Linker.Enabled).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the Badger store
func (a *App) initDatabase() error {
	if dir := a.Config.Images.Dir; dir != "" && a.Config.Images.Enabled {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = storageManager

	a.Logger.Debug().Str("path", a.Config.Storage.Badger.Path).Msg("Storage layer initialized")
	return nil
}

// initServices wires the generation pipeline, publishing and the job queue
func (a *App) initServices() error {
	cfg := a.Config

	// 1. LLM providers and the rate-limited text service
	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	a.TextService = llm.NewService(a.LLMFactory, &cfg.LLM, a.Logger)

	// 2. Research inputs
	a.CrawlerService = crawler.NewService(cfg.Crawler, a.Logger)
	a.ResearchService = research.NewService(a.TextService, a.CrawlerService, a.Logger)

	// 3. Featured images share the Gemini client
	if cfg.Images.Enabled {
		a.ImageService = images.NewService(cfg.Images, a.LLMFactory, a.Logger)
	}

	// 4. Pipeline controller
	a.Pipeline = pipeline.NewController(
		a.TextService,
		a.ResearchService,
		a.ImageService,
		pipeline.ThresholdsFromConfig(cfg.Pipeline),
		a.Logger,
	)

	// 5. Publishing: NATS sink, internal linker, publisher
	sink, err := publish.NewSink(cfg.NATS, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event sink: %w", err)
	}
	a.EventSink = sink

	a.LinkerService = linker.NewService(
		a.TextService,
		a.StorageManager.PostStorage(),
		a.StorageManager.WebsiteStorage(),
		cfg.Linker,
		a.Logger,
	)

	a.Publisher = publish.NewPublisher(
		a.StorageManager.PostStorage(),
		a.StorageManager.WebsiteStorage(),
		a.EventService,
		a.EventSink,
		a.LinkerService,
		a.Logger,
	)

	a.ClusterGenerator = cluster.NewGenerator(a.TextService, a.StorageManager.WebsiteStorage(), 0, a.Logger)

	// 6. Job queue and workers
	a.JobQueue = queue.NewJobQueue(
		a.StorageManager,
		a.Pipeline,
		a.Publisher,
		a.EventService,
		cfg.Queue,
		a.Logger,
	)
	a.WorkerPool = queue.NewWorkerPool(a.JobQueue, cfg.Queue, a.Logger)

	// 7. Scheduler with the recovery sweep
	a.SchedulerService = scheduler.NewService(a.Logger)
	if cfg.Queue.RecoverySchedule != "" {
		if err := a.SchedulerService.RegisterJob(
			recoveryJobName,
			cfg.Queue.RecoverySchedule,
			"Fail PROCESSING jobs whose lease expired",
			func(ctx context.Context) error {
				_, err := a.JobQueue.RecoverStuckJobs(ctx)
				return err
			},
		); err != nil {
			return fmt.Errorf("failed to register recovery job: %w", err)
		}
	}

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.StorageManager.WebsiteStorage(), a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobQueue, a.WorkerPool, a.Logger)
	a.PostHandler = handlers.NewPostHandler(
		a.StorageManager.PostStorage(),
		a.StorageManager.WebsiteStorage(),
		a.Publisher,
		a.Logger,
	)
	a.WebsiteHandler = handlers.NewWebsiteHandler(
		a.StorageManager.WebsiteStorage(),
		a.StorageManager.KeywordStorage(),
		a.Logger,
	)
	a.ClusterHandler = handlers.NewClusterHandler(a.ClusterGenerator, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Start runs the recovery sweep once, then starts workers and the scheduler
func (a *App) Start(ctx context.Context) {
	if n, err := a.JobQueue.RecoverStuckJobs(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Startup recovery sweep failed")
	} else if n > 0 {
		a.Logger.Info().Int("recovered", n).Msg("Startup recovery sweep reclaimed jobs")
	}

	a.WorkerPool.Start(ctx)
	a.SchedulerService.Start()
}

// Close stops background work and releases resources in reverse order of creation
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}

	if a.WorkerPool != nil {
		a.WorkerPool.Stop()
	}

	if a.EventSink != nil {
		if err := a.EventSink.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event sink")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
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
