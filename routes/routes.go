package routes

import (
	"net/http"
	"time"

	"revline/handlers"
	"revline/middleware"
	"revline/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterVoiceRoutes registers the Twilio webhooks and the media stream.
// Twilio signs requests itself, so these stay outside JWT auth.
func RegisterVoiceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/voice")
	{
		api.POST("/incoming", hb.IncomingCallHandler)
		api.POST("/wait", hb.WaitHandler)
		api.POST("/status", hb.CallStatusHandler)
		api.GET("/media-stream", hb.MediaStreamHandler)
	}
}

// RegisterSMSRoutes registers the inbound-SMS webhook.
func RegisterSMSRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/sms/inbound", hb.InboundSMSHandler)
}

// RegisterMonitorRoutes registers the operator dashboard endpoints.
func RegisterMonitorRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/admin/login", hb.AdminLoginHandler)

	api := r.Group("/api/monitor")
	{
		api.Use(middleware.JWTAuthAdminMiddleware())
		api.GET("/sessions", hb.ActiveSessionsHandler)
		api.GET("/queue/:shopId/:callSid", hb.QueuePositionHandler)
		api.GET("/capacity", hb.CapacityHandler)
	}
}

// RegisterChatRoutes registers the text-mode receptionist endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/chat")
	{
		api.POST("", hb.ChatHandler)
		api.DELETE("/:sessionId", hb.ChatResetHandler)
	}
}

// RegisterBillingRoutes registers subscription management endpoints. The
// Stripe webhook is verified by signature, not JWT.
func RegisterBillingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/billing/webhook", hb.StripeWebhookHandler)

	api := r.Group("/api/billing")
	{
		api.Use(middleware.JWTAuthAdminMiddleware())
		api.GET("/subscription/:shopId", hb.SubscriptionHandler)
		api.POST("/checkout", hb.CheckoutHandler)
		api.POST("/portal", hb.PortalHandler)
	}
}

// RegisterShopRoutes registers shop onboarding and management endpoints.
func RegisterShopRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/shops")
	{
		api.Use(middleware.JWTAuthAdminMiddleware())
		api.POST("/register", hb.RegisterShopHandler)
		api.GET("/:shopId", hb.GetShopHandler)
		api.PUT("/:shopId/settings", hb.UpdateShopSettingsHandler)
		api.GET("/:shopId/calls", hb.CallHistoryHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterVoiceRoutes(r, hb)
	RegisterSMSRoutes(r, hb)
	RegisterMonitorRoutes(r, hb)
	RegisterChatRoutes(r, hb)
	RegisterBillingRoutes(r, hb)
	RegisterShopRoutes(r, hb)
	RegisterHealthRoute(r)
}
