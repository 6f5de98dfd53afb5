package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/answered-once/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// Admin routes are registered only when a JWT secret is set.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/health", handler.Health)
	router.GET("/", handler.Health)

	// Lark delivers event callbacks to either path depending on how the
	// app's request URL was registered.
	router.POST("/webhook/lark", handler.Webhook)
	router.POST("/", handler.Webhook)

	if cfg.Admin.JWTSecret != "" {
		admin := router.Group("/api/v1/admin")
		admin.Use(
			rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
			jwtAuthMiddleware(cfg.Admin.JWTSecret),
		)
		{
			admin.POST("/seed", handler.Seed)
			admin.GET("/records/:rootID", handler.GetRecord)
			admin.GET("/stats", handler.Stats)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
