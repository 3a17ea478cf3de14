package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/shopmind/shopmind-backend/internal/handlers"
	"github.com/shopmind/shopmind-backend/internal/middleware"
)

type RouterConfig struct {
	AssistantHandler *handlers.AssistantHandler
	LayoutHandler    *handlers.LayoutHandler
	StoreAuth        *middleware.StoreAuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName()))

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Store-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.StoreAuth.RequireStore())
	{
		api.POST("/assistant/chat", cfg.AssistantHandler.Chat)
		api.GET("/assistant/threads/:id", cfg.AssistantHandler.Transcript)
		api.GET("/layout/:pageType", cfg.LayoutHandler.Get)
		api.POST("/layout/:pageType/publish", cfg.LayoutHandler.Publish)
	}

	return router
}

func serviceName() string {
	if name := strings.TrimSpace(os.Getenv("SERVICE_NAME")); name != "" {
		return name
	}
	return "shopmind-backend"
}
