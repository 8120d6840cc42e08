package handlers

import (
	"net/http"
	"time"

	"revline/config"
	"revline/services/voice"
	"revline/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminLoginHandler exchanges the operator secret for a dashboard JWT.
func AdminLoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Secret string `json:"secret" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		if err := bcrypt.CompareHashAndPassword(
			[]byte(config.AppConfig.AdminSecretHash), []byte(req.Secret)); err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}

		token, err := utils.GenerateToken("admin", "admin", 24*time.Hour)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to issue token", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// ActiveSessionsHandler reports live calls grouped by shop.
func ActiveSessionsHandler(registry *voice.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"count":  registry.Count(),
			"byShop": registry.ListByShop(),
		})
	}
}

// QueuePositionHandler reports a queued call's place in line; 404 when the
// call is not waiting.
func QueuePositionHandler(admission *voice.Admission) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID := c.Param("shopId")
		callSID := c.Param("callSid")

		position := admission.Position(shopID, callSID)
		if position == 0 {
			utils.JSONError(c, http.StatusNotFound, "Call not queued", callSID)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shopId": shopID, "callSid": callSID, "position": position})
	}
}

// CapacityHandler reports global limiter occupancy and queue depths.
func CapacityHandler(limiter *voice.Limiter, admission *voice.Admission) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"globalActive":    limiter.GlobalActive(),
			"globalAvailable": limiter.GlobalAvailable(),
			"queues":          admission.QueueSizes(),
		})
	}
}
