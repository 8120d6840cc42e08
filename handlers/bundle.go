// File: revline/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Telephony webhooks
	IncomingCallHandler gin.HandlerFunc
	WaitHandler         gin.HandlerFunc
	CallStatusHandler   gin.HandlerFunc
	MediaStreamHandler  gin.HandlerFunc
	InboundSMSHandler   gin.HandlerFunc

	// Monitoring / admin
	AdminLoginHandler     gin.HandlerFunc
	ActiveSessionsHandler gin.HandlerFunc
	QueuePositionHandler  gin.HandlerFunc
	CapacityHandler       gin.HandlerFunc

	// Text chat
	ChatHandler      gin.HandlerFunc
	ChatResetHandler gin.HandlerFunc

	// Billing
	SubscriptionHandler  gin.HandlerFunc
	CheckoutHandler      gin.HandlerFunc
	PortalHandler        gin.HandlerFunc
	StripeWebhookHandler gin.HandlerFunc

	// Shop management
	RegisterShopHandler       gin.HandlerFunc
	GetShopHandler            gin.HandlerFunc
	UpdateShopSettingsHandler gin.HandlerFunc
	CallHistoryHandler        gin.HandlerFunc
}
