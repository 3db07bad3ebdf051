package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

// ReviewHandler exposes the manager's approval workflow.
type ReviewHandler struct {
	workspaces workspaceProvider
}

// NewReviewHandler builds the handler.
func NewReviewHandler(workspaces workspaceProvider) *ReviewHandler {
	return &ReviewHandler{workspaces: workspaces}
}

// Pending godoc
// @Summary Pending requests awaiting the acting manager
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /requests/pending [get]
func (h *ReviewHandler) Pending(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := ws.Queue.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"count": len(items)})
}

// BeginApprove godoc
// @Summary Stage a request for approval
// @Tags Review
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *ReviewHandler) BeginApprove(c *gin.Context) {
	h.begin(c, func(wf *service.ApprovalWorkflowService, req models.PendingRequest) (service.ReviewState, error) {
		return wf.BeginApprove(req)
	})
}

// BeginReject godoc
// @Summary Stage a request for rejection
// @Tags Review
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *ReviewHandler) BeginReject(c *gin.Context) {
	h.begin(c, func(wf *service.ApprovalWorkflowService, req models.PendingRequest) (service.ReviewState, error) {
		return wf.BeginReject(req)
	})
}

func (h *ReviewHandler) begin(c *gin.Context, stage func(*service.ApprovalWorkflowService, models.PendingRequest) (service.ReviewState, error)) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := requestIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, err := ws.Queue.Find(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := stage(ws.Workflow, req)
	if err != nil {
		response.ErrorWithData(c, err, state)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// State godoc
// @Summary Current review state
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /review [get]
func (h *ReviewHandler) State(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ws.Workflow.State())
}

// ConfirmApprove godoc
// @Summary Send the staged approval
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /review/approve/confirm [post]
func (h *ReviewHandler) ConfirmApprove(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := ws.Workflow.ConfirmApprove(c.Request.Context()); err != nil {
		response.ErrorWithData(c, err, ws.Workflow.State())
		return
	}
	response.JSON(c, http.StatusOK, ws.Workflow.State())
}

// Reject godoc
// @Summary Send the staged rejection with a reason
// @Tags Review
// @Accept json
// @Produce json
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /review/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid rejection payload"))
		return
	}
	if err := ws.Workflow.SubmitReject(c.Request.Context(), req.Reason); err != nil {
		response.ErrorWithData(c, err, ws.Workflow.State())
		return
	}
	response.JSON(c, http.StatusOK, ws.Workflow.State())
}

// Cancel godoc
// @Summary Drop the staged request
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /review [delete]
func (h *ReviewHandler) Cancel(c *gin.Context) {
	ws, err := workspaceFromContext(c, h.workspaces)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ws.Workflow.Cancel())
}
