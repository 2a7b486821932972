package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"contenthub/internal/service"
)

// Server exposes the public HTTP surface: cached content reads, the link
// preview endpoint, and subscription management.
type Server struct {
	store         service.Store
	meta          *service.MetaService
	subscriptions *service.SubscriptionService
	push          service.PushSender
	router        *gin.Engine
	logger        *slog.Logger
}

func NewServer(
	store service.Store,
	meta *service.MetaService,
	subscriptions *service.SubscriptionService,
	push service.PushSender,
	logger *slog.Logger,
) *Server {
	router := gin.New()

	s := &Server{
		store:         store,
		meta:          meta,
		subscriptions: subscriptions,
		push:          push,
		router:        router,
		logger:        logger.With("component", "api"),
	}

	router.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		s.logger.Error("handler panic", "path", c.FullPath(), "error", err)
		s.internalError(c)
	}))

	api := router.Group("/api")
	{
		api.GET("/:content", s.handleListContent)
		api.GET("/:content/:slug", s.handleGetContent)
		api.GET("/external/meta", s.handleMeta)

		notification := api.Group("/notification")
		{
			notification.POST("/push/subscribe", s.handleSubscribePush)
			notification.POST("/email/subscribe", s.handleSubscribeEmail)
			notification.POST("/whatsapp/subscribe", s.handleSubscribeWhatsapp)
			notification.DELETE("/push/:id/unsubscribe", s.handleUnsubscribePush)
			notification.DELETE("/whatsapp/:id/unsubscribe", s.handleUnsubscribeWhatsapp)
			notification.POST("/push/send", s.handlePushSend)
		}
	}

	return s
}

// Handler returns the router for mounting into an http.Server.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
