package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/pkg/response"
)

type withdrawalService interface {
	Submit(ctx context.Context, actor models.ActingUser, scheduleID int, date models.Date, reason string) (string, error)
}

// WithdrawalHandler lets an employee ask to cancel an approved WFH day.
type WithdrawalHandler struct {
	service  withdrawalService
	validate *validator.Validate
}

// NewWithdrawalHandler builds the handler.
func NewWithdrawalHandler(service withdrawalService, validate *validator.Validate) *WithdrawalHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &WithdrawalHandler{service: service, validate: validate}
}

// Create godoc
// @Summary Request withdrawal of an approved WFH day
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Param payload body dto.WithdrawalRequest true "Withdrawal payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /withdrawals [post]
func (h *WithdrawalHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid withdrawal payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, bindError(err, "schedule_id and date are required"))
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		response.Error(c, bindError(err, "date must be YYYY-MM-DD"))
		return
	}

	message, err := h.service.Submit(c.Request.Context(), actor, req.ScheduleID, date, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.WithdrawalResponse{Message: message})
}
