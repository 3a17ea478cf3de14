package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopmind/shopmind-backend/internal/assistant"
	"github.com/shopmind/shopmind-backend/internal/clients/openai"
	"github.com/shopmind/shopmind-backend/internal/clients/redis"
	"github.com/shopmind/shopmind-backend/internal/db"
	"github.com/shopmind/shopmind-backend/internal/handlers"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/middleware"
	"github.com/shopmind/shopmind-backend/internal/observability"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/server"
	"github.com/shopmind/shopmind-backend/internal/services"
	"github.com/shopmind/shopmind-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	openaiModel := utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log)

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: utils.GetEnv("SERVICE_NAME", "shopmind-backend", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer shutdownOTel(context.Background())
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	slotDocRepo := repos.NewSlotDocumentRepo(thePG, log)
	productRepo := repos.NewProductRepo(thePG, log)
	categoryRepo := repos.NewCategoryRepo(thePG, log)
	chatRepo := repos.NewChatRepo(thePG, log)
	trainingRepo := repos.NewTrainingCandidateRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Warn("OpenAI client unavailable, assistant degrades to rule-based resolution", "error", err)
		openaiClient = nil
	}
	pendingStore, err := redis.NewPendingStore(log)
	if err != nil {
		log.Warn("Redis unavailable, pending actions fall back to chat history", "error", err)
		pendingStore = nil
	}

	// Services
	log.Info("Setting up Services from main...")
	var aiClient openai.Client
	if openaiClient != nil {
		aiClient = services.NewAuditedAIClient(openaiClient, openaiModel, aiCallLogRepo, log)
	}
	layoutService := services.NewLayoutService(thePG, slotDocRepo, log)
	catalogService := services.NewCatalogService(productRepo, categoryRepo, log)
	trainingService := services.NewTrainingService(trainingRepo, log)

	executor := assistant.NewExecutor(log, layoutService, catalogService)
	var sessions assistant.SessionStore
	if pendingStore != nil {
		sessions = pendingStore
	}
	engine := assistant.NewEngine(log, aiClient, executor, sessions, trainingService, layoutService, catalogService)
	assistantService := services.NewAssistantService(engine, chatRepo, log)

	// Handlers
	log.Info("Setting up handlers from main...")
	assistantHandler := handlers.NewAssistantHandler(log, assistantService)
	layoutHandler := handlers.NewLayoutHandler(log, layoutService)

	// Middleware
	log.Info("Setting up middleware from main...")
	storeAuth := middleware.NewStoreAuthMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AssistantHandler: assistantHandler,
		LayoutHandler:    layoutHandler,
		StoreAuth:        storeAuth,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
