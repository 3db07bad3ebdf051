package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// HistoryHandler lists the acting user's own requests.
type HistoryHandler struct {
	history *service.RequestHistoryService
}

// NewHistoryHandler builds the handler.
func NewHistoryHandler(history *service.RequestHistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List godoc
// @Summary Own request history
// @Tags Application
// @Produce json
// @Param status query string false "PENDING, APPROVED, REJECTED, WITHDRAWN or EXPIRED"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /application/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid history query"))
		return
	}
	records, err := h.history.History(c.Request.Context(), actor, query.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}
