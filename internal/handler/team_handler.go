package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// TeamHandler serves headcount views across a reporting line.
type TeamHandler struct {
	team *service.TeamScheduleService
}

// NewTeamHandler builds the handler.
func NewTeamHandler(team *service.TeamScheduleService) *TeamHandler {
	return &TeamHandler{team: team}
}

// Summary godoc
// @Summary Team WFH headcount per day
// @Description HR sees every staff member, managers their direct reports, staff their own manager's team.
// @Tags Team
// @Produce json
// @Param start_date query string false "First day (YYYY-MM-DD), defaults to the start of the selectable window"
// @Param end_date query string false "Last day (YYYY-MM-DD), defaults to the end of the selectable window"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /team/calendar [get]
func (h *TeamHandler) Summary(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid calendar query"))
		return
	}
	rng, err := resolveRange(query, h.team.DefaultRange())
	if err != nil {
		response.Error(c, err)
		return
	}
	cal, err := h.team.Summary(c.Request.Context(), actor, rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(cal.Warnings) > 0 {
		response.WithWarnings(c, http.StatusOK, cal, cal.Warnings)
		return
	}
	response.JSON(c, http.StatusOK, cal, map[string]interface{}{"days": len(cal.Days)})
}

// Detail godoc
// @Summary Where each team member works on a date
// @Tags Team
// @Produce json
// @Param date path string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /team/calendar/{date} [get]
func (h *TeamHandler) Detail(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	date, err := models.ParseDate(c.Param("date"))
	if err != nil {
		response.Error(c, bindError(err, "date must be YYYY-MM-DD"))
		return
	}
	detail, err := h.team.Detail(c.Request.Context(), actor, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, map[string]interface{}{"count": len(detail.Staff)})
}
