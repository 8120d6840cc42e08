package handlers

import (
	"net/http"

	"revline/services/telephony"
	"revline/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func respondTwiML(c *gin.Context, doc string, err error) {
	if err != nil {
		utils.GetLogger().Error("failed to build TwiML", zap.Error(err))
		c.String(http.StatusInternalServerError, "error")
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, doc)
}

// IncomingCallHandler answers Twilio's inbound-call webhook with the TwiML
// chosen by quota and admission.
func IncomingCallHandler(manager *telephony.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := manager.HandleIncoming(c.Request.Context(),
			c.PostForm("CallSid"), c.PostForm("From"), c.PostForm("To"))
		respondTwiML(c, doc, err)
	}
}

// WaitHandler answers the hold loop's periodic redirect for queued callers.
func WaitHandler(manager *telephony.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := manager.HandleWait(c.Request.Context(),
			c.PostForm("CallSid"), c.PostForm("To"))
		respondTwiML(c, doc, err)
	}
}

// CallStatusHandler processes Twilio call-status callbacks.
func CallStatusHandler(manager *telephony.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager.HandleStatus(c.Request.Context(),
			c.PostForm("CallSid"), c.PostForm("To"), c.PostForm("CallStatus"))
		c.String(http.StatusOK, "OK")
	}
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Twilio's media stream carries no browser origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MediaStreamHandler upgrades the connection and bridges the call's audio
// until the stream ends.
func MediaStreamHandler(manager *telephony.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := utils.GetLogger()
		conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("media stream upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		bridge := telephony.NewBridge(conn, manager, logger)
		if err := bridge.Run(c.Request.Context()); err != nil {
			logger.Warn("media stream ended with error", zap.Error(err))
		}
	}
}
