package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// HousekeepingHandler lets HR trigger maintenance jobs on demand.
type HousekeepingHandler struct {
	housekeeping *service.HousekeepingService
	ageDays      int
}

// NewHousekeepingHandler builds the handler. ageDays is the pending age after which requests expire.
func NewHousekeepingHandler(housekeeping *service.HousekeepingService, ageDays int) *HousekeepingHandler {
	return &HousekeepingHandler{housekeeping: housekeeping, ageDays: ageDays}
}

// ExpireRequests godoc
// @Summary Expire stale pending requests
// @Description Pending requests whose start date is older than the configured age become EXPIRED, with their schedules.
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /admin/expire-requests [post]
func (h *HousekeepingHandler) ExpireRequests(c *gin.Context) {
	message, err := h.housekeeping.ExpireNow(c.Request.Context(), h.ageDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ExpireRequestsResponse{
		Message: message,
		Cutoff:  h.housekeeping.ExpiryCutoff(h.ageDays).String(),
	})
}
