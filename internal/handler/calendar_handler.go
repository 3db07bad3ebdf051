package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/middleware"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

type calendarExporter interface {
	Export(format service.ExportFormat, owner models.ActingUser, view service.CalendarView) (*service.ExportedFile, error)
}

type todayProvider interface {
	Today() models.Date
}

// CalendarHandler serves the personal WFH calendar.
type CalendarHandler struct {
	workspaces workspaceProvider
	clock      todayProvider
	exporter   calendarExporter
}

// NewCalendarHandler builds the handler.
func NewCalendarHandler(workspaces workspaceProvider, clock todayProvider, exporter calendarExporter) *CalendarHandler {
	return &CalendarHandler{workspaces: workspaces, clock: clock, exporter: exporter}
}

// Get godoc
// @Summary Load the personal calendar
// @Description Loads the range in chunks. Partially failed ranges return the loaded events with warnings.
// @Tags Calendar
// @Produce json
// @Param start_date query string false "First day (YYYY-MM-DD), defaults to the start of the selectable window"
// @Param end_date query string false "Last day (YYYY-MM-DD), defaults to the end of the selectable window"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	ws, view, err := h.load(c)
	if ws == nil {
		response.Error(c, err)
		return
	}
	if err != nil {
		response.ErrorWithData(c, err, view)
		return
	}
	middleware.SetMeta(c, "event_count", len(view.Events))
	if len(view.Warnings) > 0 {
		response.WithWarnings(c, http.StatusOK, view, view.Warnings)
		return
	}
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
}

// Select godoc
// @Summary Select a calendar date
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.SelectDateRequest true "Clicked date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/select [post]
func (h *CalendarHandler) Select(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SelectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid selection payload"))
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		response.Error(c, bindError(err, "date must be YYYY-MM-DD"))
		return
	}
	if err := ws.Calendar.SelectDate(date, h.clock.Today()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SelectDateResponse{Date: ws.Calendar.Selected().String()})
}

// Export godoc
// @Summary Export the personal calendar
// @Tags Calendar
// @Produce text/csv,application/pdf,text/calendar
// @Param start_date query string false "First day (YYYY-MM-DD)"
// @Param end_date query string false "Last day (YYYY-MM-DD)"
// @Param format query string false "csv, pdf or ics" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /calendar/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ws, view, err := h.load(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Export(format, ws.Actor, view)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// load refreshes the requested range. A nil workspace means the request never reached the aggregator.
func (h *CalendarHandler) load(c *gin.Context) (*service.Workspace, service.CalendarView, error) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		return nil, service.CalendarView{}, err
	}
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return nil, service.CalendarView{}, bindError(err, "invalid calendar query")
	}
	rng, err := resolveRange(query, ws.Calendar.DefaultRange())
	if err != nil {
		return nil, service.CalendarView{}, err
	}
	if rng, err = ws.Calendar.ClampRange(rng); err != nil {
		return nil, service.CalendarView{}, err
	}
	view, err := ws.Calendar.Refresh(c.Request.Context(), rng.Start, rng.End)
	return ws, view, err
}

func resolveRange(query dto.CalendarQuery, fallback service.DateRange) (service.DateRange, error) {
	rng := fallback
	if query.StartDate != "" {
		start, err := models.ParseDate(query.StartDate)
		if err != nil {
			return rng, bindError(err, "start_date must be YYYY-MM-DD")
		}
		rng.Start = start
	}
	if query.EndDate != "" {
		end, err := models.ParseDate(query.EndDate)
		if err != nil {
			return rng, bindError(err, "end_date must be YYYY-MM-DD")
		}
		rng.End = end
	}
	if rng.End.Before(rng.Start) {
		return rng, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return rng, nil
}
