package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

func (h *Handler) UpdateProfile(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, common.BadRequest("Invalid request body"))
		return
	}
	if err := h.Profile.Update(c.Request.Context(), c.GetHeader("Authorization"), body); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"message": "User profile updated successfully!"})
}
