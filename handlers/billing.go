package handlers

import (
	"io"
	"net/http"

	"revline/models"
	"revline/services/billing"
	"revline/utils"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler returns a shop's plan and current-period usage.
func SubscriptionHandler(svc billing.BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID := c.Param("shopId")
		subscription, err := svc.GetOrCreateSubscription(c.Request.Context(), shopID)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to load subscription", err.Error())
			return
		}
		quota := svc.CheckQuota(c.Request.Context(), shopID)
		c.JSON(http.StatusOK, gin.H{
			"subscription": subscription,
			"planName":     models.PlanNames[subscription.PlanTier],
			"priceUSD":     models.PlanPrices[subscription.PlanTier],
			"quota":        quota,
		})
	}
}

// CheckoutRequest starts a plan upgrade.
type CheckoutRequest struct {
	ShopID     string          `json:"shopId" binding:"required"`
	PlanTier   models.PlanTier `json:"planTier" binding:"required"`
	SuccessURL string          `json:"successUrl" binding:"required"`
	CancelURL  string          `json:"cancelUrl" binding:"required"`
}

// CheckoutHandler creates a Stripe checkout session and returns its URL.
func CheckoutHandler(svc billing.BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		url, err := svc.CreateCheckoutSession(c.Request.Context(),
			req.ShopID, req.PlanTier, req.SuccessURL, req.CancelURL)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Checkout failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// PortalHandler opens the Stripe customer portal.
func PortalHandler(svc billing.BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ShopID    string `json:"shopId" binding:"required"`
			ReturnURL string `json:"returnUrl" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		url, err := svc.CreatePortalSession(c.Request.Context(), req.ShopID, req.ReturnURL)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Portal failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// StripeWebhookHandler applies subscription lifecycle events from Stripe.
func StripeWebhookHandler(svc billing.BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Failed to read body", err.Error())
			return
		}

		err = svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Webhook rejected", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	}
}
