package handlers

import (
	"net/http"
	"strconv"
	"time"

	callsRepo "revline/database/repository/calls"
	shopsRepo "revline/database/repository/shops"
	"revline/models"
	"revline/utils"

	"github.com/gin-gonic/gin"
)

// RegisterShopRequest onboards a new shop.
type RegisterShopRequest struct {
	Name        string              `json:"name" binding:"required"`
	PhoneNumber string              `json:"phoneNumber" binding:"required"`
	Address     string              `json:"address"`
	Hours       string              `json:"hours"`
	Services    []string            `json:"services"`
	OwnerFCMTok string              `json:"ownerFcmToken"`
	Settings    models.ShopSettings `json:"settings"`
}

// RegisterShopHandler creates a shop and returns its ID.
func RegisterShopHandler(shops shopsRepo.ShopRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterShopRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		if existing, err := shops.GetByPhoneNumber(c.Request.Context(), req.PhoneNumber); err == nil && existing != nil {
			utils.JSONError(c, http.StatusConflict, "Phone number already registered", req.PhoneNumber)
			return
		}

		now := time.Now().UTC()
		shop := models.Shop{
			Name:        req.Name,
			PhoneNumber: req.PhoneNumber,
			Address:     req.Address,
			Hours:       req.Hours,
			Services:    req.Services,
			OwnerFCMTok: req.OwnerFCMTok,
			Settings:    req.Settings,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		id, err := shops.Create(c.Request.Context(), shop)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to register shop", err.Error())
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// GetShopHandler returns a shop's profile and settings.
func GetShopHandler(shops shopsRepo.ShopRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, err := shops.GetByID(c.Request.Context(), c.Param("shopId"))
		if err != nil {
			utils.JSONError(c, http.StatusNotFound, "Shop not found", c.Param("shopId"))
			return
		}
		c.JSON(http.StatusOK, shop)
	}
}

// UpdateShopSettingsHandler replaces a shop's settings block. Changes to
// concurrency or queue settings apply to the next admitted call.
func UpdateShopSettingsHandler(shops shopsRepo.ShopRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings models.ShopSettings
		if err := c.ShouldBindJSON(&settings); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid settings", err.Error())
			return
		}

		shopID := c.Param("shopId")
		if _, err := shops.GetByID(c.Request.Context(), shopID); err != nil {
			utils.JSONError(c, http.StatusNotFound, "Shop not found", shopID)
			return
		}
		if err := shops.UpdateSettings(c.Request.Context(), shopID, settings); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to update settings", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	}
}

// CallHistoryHandler lists a shop's most recent call records.
func CallHistoryHandler(calls callsRepo.CallRecordRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(50)
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		records, err := calls.GetByShopID(c.Request.Context(), c.Param("shopId"), limit)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to load call history", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"calls": records, "count": len(records)})
	}
}
