package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hallwaychat/hallway-server/internal/auth"
	"github.com/hallwaychat/hallway-server/internal/config"
	"github.com/hallwaychat/hallway-server/internal/core"
	"github.com/hallwaychat/hallway-server/internal/metrics"
	"github.com/hallwaychat/hallway-server/internal/store"
)

// NewServer builds the HTTP server with the REST API, the metrics endpoint,
// and the WebSocket bridge into the hub.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	historyHandlers := NewHistoryHandlers(st, logger)
	socialHandlers := NewSocialHandlers(st, logger)

	api := router.Group("/api")
	{
		api.POST("/signup", apiHandlers.Signup)
		api.POST("/login", apiHandlers.Login)
		api.POST("/refresh", apiHandlers.Refresh)

		authed := api.Group("")
		authed.Use(AuthMiddleware(authService, logger))
		{
			authed.GET("/messages/:channel_id", historyHandlers.GetMessages)
			authed.GET("/social-data", socialHandlers.GetSocialData)
			authed.POST("/friend-request", socialHandlers.SendRequest)
			authed.POST("/friend-request/:id/accept", socialHandlers.AcceptRequest)
			authed.POST("/friend-request/:id/reject", socialHandlers.RejectRequest)
			authed.DELETE("/friend-request/:id", socialHandlers.CancelRequest)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
