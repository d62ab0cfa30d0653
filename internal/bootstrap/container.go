package bootstrap

import (
	"context"
	"log"

	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/controller"
	"ai-widgetchat-be/internal/handler"
	"ai-widgetchat-be/internal/pkg/lock"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/repository/memory"
	"ai-widgetchat-be/internal/repository/unitofwork"
	"ai-widgetchat-be/internal/service"
	"ai-widgetchat-be/internal/websocket"
	"ai-widgetchat-be/pkg/llm/factory"

	pktNats "ai-widgetchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController         controller.IAuthController
	ChatController         controller.IChatController
	ConversationController controller.IConversationController
	WidgetController       controller.IWidgetController
	PipelineController     controller.IPipelineController

	// Background services (exposed for main.go to run)
	ConsumerService  service.IConsumerService
	EventFeedService *service.EventFeedService

	// WebSockets
	FeedHandler  *handler.FeedHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		providerBaseURL(cfg),
		cfg.Ai.HuggingFaceAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
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
		log.Printf("[WARN] Failed to connect to Redis: %v (falling back to in-process guards)", err)
		rdb = nil
	}

	// In-memory guards + distributed lease
	guard := memory.NewGenerationGuard()
	locks := memory.NewConversationLocks()
	leaser := lock.NewLeaser(rdb)

	// WebSocket hub for the widget status feed
	feedLogger := logger.NewIsolatedLogger("logs/feed.log")
	wsHub := websocket.NewHub(rdb, feedLogger)
	go wsHub.Run()

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Pipeline.JobTopic, pubSub)

	pipelineLogger := logger.NewIsolatedLogger("logs/pipeline.log")
	tagExtractionService := service.NewTagExtractionService(uowFactory, llmProvider, publisherService, natsPub, pipelineLogger)
	tagClusteringService := service.NewTagClusteringService(uowFactory, llmProvider, publisherService, natsPub, guard, cfg.Pipeline, pipelineLogger)
	widgetGenerationService := service.NewWidgetGenerationService(uowFactory, llmProvider, natsPub, guard, pipelineLogger)
	widgetUpdateService := service.NewWidgetUpdateService(uowFactory, llmProvider, publisherService, natsPub, leaser, cfg.Pipeline, pipelineLogger)

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Pipeline.JobTopic,
		tagExtractionService,
		tagClusteringService,
		widgetGenerationService,
		widgetUpdateService,
		pipelineLogger,
	)

	chatService := service.NewChatService(uowFactory, llmProvider, publisherService, locks, cfg.Pipeline, sysLogger)
	widgetService := service.NewWidgetService(uowFactory, cfg.App.ThumbnailDir, sysLogger)
	authService := service.NewAuthService(&cfg.Auth, sysLogger)

	var eventFeedService *service.EventFeedService
	if natsSub != nil {
		eventFeedService = service.NewEventFeedService(natsSub, wsHub, feedLogger)
	}

	// 6. Controllers
	return &Container{
		AuthController:         controller.NewAuthController(authService, &cfg.Auth),
		ChatController:         controller.NewChatController(chatService, &cfg.Auth, sysLogger),
		ConversationController: controller.NewConversationController(chatService, &cfg.Auth),
		WidgetController:       controller.NewWidgetController(widgetService, chatService, &cfg.Auth),
		PipelineController: controller.NewPipelineController(
			tagExtractionService,
			tagClusteringService,
			widgetGenerationService,
			widgetUpdateService,
			&cfg.Auth,
		),
		ConsumerService:  consumerService,
		EventFeedService: eventFeedService,
		FeedHandler:      handler.NewFeedHandler(wsHub, &cfg.Auth, feedLogger),
		WebSocketHub:     wsHub,
	}
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "huggingface" {
		return cfg.Ai.HuggingFaceBaseURL
	}
	return cfg.Ai.OllamaBaseURL
}
