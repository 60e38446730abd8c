package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

type checkoutReq struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

func (h *Handler) CreateCheckout(c *gin.Context) {
	var req checkoutReq
	_ = c.ShouldBindJSON(&req)

	id, err := h.Billing.Checkout(c.Request.Context(), req.UserID, req.Plan)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"sessionId": id})
}

func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.fail(c, common.BadRequest("Invalid payload"))
		return
	}
	if err := h.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"message": "Webhook processed successfully"})
}
