package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// ApplicationHandler exposes the employee's WFH application form.
type ApplicationHandler struct {
	workspaces workspaceProvider
}

// NewApplicationHandler builds the handler.
func NewApplicationHandler(workspaces workspaceProvider) *ApplicationHandler {
	return &ApplicationHandler{workspaces: workspaces}
}

// GetDraft godoc
// @Summary Current application draft
// @Tags Application
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /application/draft [get]
func (h *ApplicationHandler) GetDraft(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ws.Builder.Snapshot())
}

// PatchDraft godoc
// @Summary Update one or more draft fields
// @Description Validation runs on every change; date errors are returned inside the snapshot.
// @Tags Application
// @Accept json
// @Produce json
// @Param payload body dto.DraftPatchRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /application/draft [patch]
func (h *ApplicationHandler) PatchDraft(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.DraftPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid draft payload"))
		return
	}
	if req.Empty() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no draft field supplied"))
		return
	}

	snapshot := ws.Builder.Snapshot()
	apply := func(field service.DraftField, value *string) bool {
		if value == nil {
			return true
		}
		snapshot, err = ws.Builder.SetField(field, *value)
		return err == nil
	}
	var recurring *string
	if req.IsRecurring != nil {
		v := strconv.FormatBool(*req.IsRecurring)
		recurring = &v
	}
	ok := apply(service.FieldIsRecurring, recurring) &&
		apply(service.FieldStartDate, req.StartDate) &&
		apply(service.FieldEndDate, req.EndDate) &&
		apply(service.FieldReason, req.ReasonForApplying) &&
		apply(service.FieldDuration, req.Duration)
	if !ok {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot)
}

// ResetDraft godoc
// @Summary Clear the draft
// @Tags Application
// @Success 204
// @Router /application/draft [delete]
func (h *ApplicationHandler) ResetDraft(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	ws.Builder.Reset()
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit the draft as a WFH request
// @Tags Application
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /application/submit [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := ws.Builder.Submit(c.Request.Context())
	if err != nil {
		response.ErrorWithData(c, err, ws.Builder.Snapshot())
		return
	}
	response.Created(c, outcome)
}
