package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/storage"
)

func (h *Handler) PresignFile(c *gin.Context) {
	var req storage.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, common.BadRequest("Invalid request body"))
		return
	}
	res, err := h.Files.Presign(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, http.StatusOK, res)
}
