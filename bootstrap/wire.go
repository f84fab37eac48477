// ABOUTME: This file wires every application dependency together at startup
// ABOUTME: Builds the database pool, repositories, services, handlers and the Redis consumer
package bootstrap

import (
	"context"
	"log/slog"

	"trend-processor/config"
	"trend-processor/consumer"
	"trend-processor/dlq"
	"trend-processor/driver"
	"trend-processor/handler"
	"trend-processor/middleware"
	"trend-processor/repository"
	"trend-processor/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all application dependencies.
type Dependencies struct {
	DBPool          *pgxpool.Pool
	Config          *config.Config
	PipelineHandler *handler.PipelineHandler
	QueueHandler    *handler.QueueHandler
	WebhookHandler  *handler.WebhookHandler
	HealthHandler   handler.HealthHandler
	Scheduler       handler.JobScheduler
	AuthMiddleware  *middleware.AuthMiddleware
	StatusChecker   service.StatusCheckerService
	Pipeline        service.PipelineService
	RedisConsumer   *consumer.Consumer
	EventPublisher  *consumer.Publisher
	Logger          *slog.Logger
}

// BuildDependencies constructs all application dependencies.
// Returns a cleanup function that should be deferred.
func BuildDependencies(ctx context.Context, log *slog.Logger) (*Dependencies, func(), error) {
	// Initialize database
	dbPool, err := driver.Init(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Load application config
	cfg, err := config.LoadConfig()
	if err != nil {
		dbPool.Close()
		return nil, nil, err
	}

	// Initialize repositories
	batchRepo := repository.NewBatchRepository(dbPool, log)
	queryRepo := repository.NewQueryRepository(dbPool, log)
	videoRepo := repository.NewVideoRepository(dbPool, log)
	recRepo := repository.NewRecommendationRepository(dbPool, log)
	scraperRepo := repository.NewScraperAPIRepository(cfg, log)
	llmRepo := repository.NewLLMAPIRepository(cfg, log)

	// The queue publisher comes first so the pipeline can mirror analysis
	// hand-offs onto the stream.
	consumerCfg := consumer.ConfigFromEnv()
	eventPublisher, err := consumer.NewPublisher(consumerCfg, log)
	if err != nil {
		log.Error("failed to create redis streams publisher", "error", err)
		eventPublisher = nil
	}

	// A typed nil must not leak into the interface field.
	var analysisEvents service.AnalysisEventSink
	if eventPublisher != nil {
		analysisEvents = consumer.NewAnalysisEventPublisher(eventPublisher)
	}

	// Initialize services
	queryGen := service.NewQueryGeneratorService(batchRepo, queryRepo, llmRepo, log)
	scraper := service.NewVideoScraperService(queryRepo, videoRepo, scraperRepo, cfg, log)
	analyzer := service.NewVideoAnalyzerService(videoRepo, llmRepo, cfg, log)
	synthesizer := service.NewRecommendationSynthesizerService(batchRepo, videoRepo, recRepo, llmRepo, cfg, log)
	dispatcher := service.NewChainDispatcher(cfg, log)
	pipeline := service.NewPipelineService(batchRepo, videoRepo, queryGen, scraper, analyzer, synthesizer, dispatcher, analysisEvents, cfg, log)
	checker := service.NewStatusCheckerService(batchRepo, videoRepo, recRepo, cfg, log)
	poller := service.NewStatusPollerService(checker, cfg, log)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg, log)
	if err != nil {
		dbPool.Close()
		return nil, nil, err
	}

	// Initialize Redis Streams consumer
	redisConsumer := buildRedisConsumer(ctx, consumerCfg, pipeline, analyzer, log)

	// Initialize handlers
	ownerFromRequest := func(c echo.Context) string {
		return middleware.OwnerIDFromContext(c.Request().Context())
	}
	pipelineHandler := handler.NewPipelineHandler(pipeline, checker, poller, ownerFromRequest, log)
	webhookHandler := handler.NewWebhookHandler(videoRepo, cfg.Pipeline.WebhookSecret, log)
	healthHandler := handler.NewHealthHandler(dbPool, log)
	scheduler := handler.NewJobScheduler(log)

	// The handler treats a nil publisher as "queue unavailable".
	var publisher handler.EventPublisher
	if eventPublisher != nil {
		publisher = eventPublisher
	}
	queueHandler := handler.NewQueueHandler(publisher, consumer.EventTypePipelineRequested, ownerFromRequest, log)

	cleanup := func() {
		if eventPublisher != nil {
			if err := eventPublisher.Close(); err != nil {
				log.Error("failed to close event publisher", "error", err)
			}
		}
		dbPool.Close()
	}

	return &Dependencies{
		DBPool:          dbPool,
		Config:          cfg,
		PipelineHandler: pipelineHandler,
		QueueHandler:    queueHandler,
		WebhookHandler:  webhookHandler,
		HealthHandler:   healthHandler,
		Scheduler:       scheduler,
		AuthMiddleware:  authMiddleware,
		StatusChecker:   checker,
		Pipeline:        pipeline,
		RedisConsumer:   redisConsumer,
		EventPublisher:  eventPublisher,
		Logger:          log,
	}, cleanup, nil
}

func buildRedisConsumer(ctx context.Context, consumerCfg consumer.Config, pipeline service.PipelineService, analyzer service.VideoAnalyzerService, log *slog.Logger) *consumer.Consumer {
	adapter := consumer.NewPipelineServiceAdapter(pipeline, analyzer, log)
	eventHandler := consumer.NewPipelineEventHandler(adapter, log)
	redisConsumer, err := consumer.NewConsumer(consumerCfg, eventHandler, log)
	if err != nil {
		log.Error("failed to create redis streams consumer", "error", err)
		return nil
	}

	deadLetters := dlq.NewManager(dlq.ConfigFromEnv(), log)
	deadLetters.StartCleanup(ctx)
	redisConsumer.WithDeadLetters(deadLetters)

	if err := redisConsumer.Start(ctx); err != nil {
		log.Error("failed to start redis streams consumer", "error", err)
	} else {
		log.Info("redis streams consumer started",
			"stream", consumerCfg.StreamKey,
			"group", consumerCfg.GroupName,
			"enabled", consumerCfg.Enabled)
	}

	return redisConsumer
}
