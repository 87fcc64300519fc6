package bootstrap

import (
	"context"
	"log"
	"time"

	"studyforge-be/internal/config"
	"studyforge-be/internal/controller"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/internal/repository/unitofwork"
	"studyforge-be/internal/service"
	"studyforge-be/pkg/cards"
	"studyforge-be/pkg/embedding"
	"studyforge-be/pkg/llm/factory"
	"studyforge-be/pkg/transcript"

	pktNats "studyforge-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ContentController    controller.IContentController
	GenerationController controller.IGenerationController
	DeckController       controller.IDeckController

	// Background Services (Exposed for main.go to run)
	ConsumerService   service.IConsumerService
	GenerationService service.IGenerationService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	embedPubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	jobPubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// 5. Services
	embedPublisher := service.NewPublisherService(cfg.Keys.EmbedChunksTopic, embedPubSub)
	jobPublisher := service.NewPublisherService(cfg.Keys.GenerationTopic, jobPubSub)

	chunkOpts := transcript.Options{
		MaxTokens:  cfg.Generation.MaxTokensPerChunk,
		MaxSeconds: cfg.Generation.MaxSecondsPerChunk,
	}
	contentService := service.NewContentService(uowFactory, embedPublisher, chunkOpts, sysLogger)

	consumerService := service.NewConsumerService(
		embedPubSub,
		cfg.Keys.EmbedChunksTopic,
		uowFactory,
		embeddingProvider,
		sysLogger,
	)

	// Each module run gets its own stage runner so usage accounting stays
	// per-module.
	callTimeout := time.Duration(cfg.Generation.CallTimeoutSeconds) * time.Second
	newExecutor := func() service.StageExecutor {
		return cards.NewStageRunner(llmProvider, cards.WithCallTimeout(callTimeout))
	}

	rootUow := uowFactory.NewUnitOfWork(context.Background())
	pipeline := service.NewModulePipeline(
		rootUow.ChunkRepository(),
		embeddingProvider,
		newExecutor,
		cards.NewStaticCostEstimator(),
		cfg.Ai.LLMModel,
		cfg.Generation,
		rootUow.GenConfigRepository(),
		sysLogger,
	)

	generationService := service.NewGenerationService(
		uowFactory,
		jobPublisher,
		jobPubSub,
		cfg.Keys.GenerationTopic,
		pipeline,
		natsPub,
		rdb,
		cfg.Generation,
		sysLogger,
	)

	deckService := service.NewDeckService(uowFactory, sysLogger)
	genConfigService := service.NewGenConfigService(uowFactory, sysLogger)

	// 6. Controllers
	return &Container{
		ContentController:    controller.NewContentController(contentService),
		GenerationController: controller.NewGenerationController(generationService, genConfigService),
		DeckController:       controller.NewDeckController(deckService),
		ConsumerService:      consumerService,
		GenerationService:    generationService,
		Logger:               sysLogger,
	}
}
