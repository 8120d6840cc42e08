package handlers

import (
	"net/http"

	shopsRepo "revline/database/repository/shops"
	"revline/services/sms"
	"revline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InboundSMSHandler processes Twilio's inbound-SMS webhook for opt-out and
// opt-in keywords. Twilio expects an empty TwiML document back.
func InboundSMSHandler(svc *sms.SummaryService, shops shopsRepo.ShopRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		from := c.PostForm("From")
		to := c.PostForm("To")
		body := c.PostForm("Body")

		logger := utils.GetLogger()
		shop, err := shops.GetByPhoneNumber(c.Request.Context(), to)
		if err != nil {
			logger.Warn("inbound sms for unknown number", zap.String("to", to))
		} else if err := svc.HandleInbound(c.Request.Context(), shop.ID, from, body); err != nil {
			logger.Error("inbound sms handling failed",
				zap.String("shopId", shop.ID), zap.Error(err))
		}

		c.Header("Content-Type", "application/xml")
		c.String(http.StatusOK, "<?xml version=\"1.0\" encoding=\"UTF-8\"?><Response></Response>")
	}
}
