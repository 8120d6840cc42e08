package handlers

import (
	"net/http"

	appointmentsRepo "revline/database/repository/appointments"
	shopsRepo "revline/database/repository/shops"
	workordersRepo "revline/database/repository/workorders"
	"revline/models"
	"revline/services/intelligence"
	"revline/services/shopdata"
	"revline/services/tools"
	"revline/services/voice"
	"revline/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatRequest is one text-mode message to the receptionist.
type ChatRequest struct {
	ShopID    string `json:"shopId" binding:"required"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message" binding:"required"`
}

// ChatHandler answers a text message in the voice persona, with the same
// tools, for development and shop-owner testing without placing a call.
// A shopId of "demo" uses the built-in demo shop.
func ChatHandler(chat *intelligence.ChatService, shops shopsRepo.ShopRepository,
	workOrders workordersRepo.WorkOrderRepository, appointments appointmentsRepo.AppointmentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		logger := utils.GetLogger()

		var shop *models.Shop
		var adapter shopdata.Adapter
		if req.ShopID == "demo" {
			shop = &models.Shop{ID: "demo", Name: "Demo Auto Shop"}
			adapter = shopdata.NewDemoAdapter()
		} else {
			found, err := shops.GetByID(c.Request.Context(), req.ShopID)
			if err != nil {
				utils.JSONError(c, http.StatusNotFound, "Shop not found", req.ShopID)
				return
			}
			shop = found
			adapter = shopdata.NewMongoAdapter(shop, workOrders, appointments, logger)
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		registry := tools.NewRegistry(adapter, "chat:"+sessionID, "", logger)
		registry.Bind(voice.NewBookingProposal())

		reply, err := chat.Chat(c.Request.Context(), shop, sessionID, req.Message, registry)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Chat failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "reply": reply})
	}
}

// ChatResetHandler clears a chat session's history.
func ChatResetHandler(chat *intelligence.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if err := chat.Reset(c.Request.Context(), sessionID); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Reset failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	}
}
