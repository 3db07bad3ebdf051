package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

const msgWithdrawalReasonRequired = "Please provide a reason for withdrawal."

// WithdrawalService files requests to cancel approved WFH days near today.
type WithdrawalService struct {
	rules     *DateRuleService
	submitter WithdrawalSubmitter
	validator *validator.Validate
	window    time.Duration
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewWithdrawalService constructs the service. A non-positive window defaults to two weeks.
func NewWithdrawalService(rules *DateRuleService, submitter WithdrawalSubmitter, validate *validator.Validate, window time.Duration, metrics *MetricsService, logger *zap.Logger) *WithdrawalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if window <= 0 {
		window = 14 * 24 * time.Hour
	}
	return &WithdrawalService{rules: rules, submitter: submitter, validator: validate, window: window, metrics: metrics, logger: logger}
}

// Submit asks the actor's manager to withdraw the schedule on date.
func (s *WithdrawalService) Submit(ctx context.Context, actor models.ActingUser, scheduleID int, date models.Date, reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return "", appErrors.Clone(appErrors.ErrReasonRequired, msgWithdrawalReasonRequired)
	}
	if date.IsZero() {
		return "", appErrors.Clone(appErrors.ErrValidation, "date is required")
	}

	today := s.rules.Today()
	days := int(s.window / (24 * time.Hour))
	if offset := today.DaysUntil(date); offset < -days || offset > days {
		return "", appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("You can only withdraw WFH days within %s of today.", daysPhrase(days)))
	}

	req := models.WithdrawalRequest{
		ScheduleID:   scheduleID,
		StaffID:      actor.StaffID,
		ManagerID:    actor.ManagerID,
		ScheduleDate: date,
		Reason:       trimmed,
	}
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid withdrawal request")
	}

	message, err := s.submitter.SubmitWithdrawal(ctx, req)
	s.metrics.RecordWithdrawal(err == nil)
	if err != nil {
		s.logger.Warn("withdrawal request failed", zap.Int("staff_id", actor.StaffID), zap.Int("schedule_id", scheduleID), zap.Error(err))
		text := appErrors.ErrWithdrawalFailed.Message
		if upstream := appErrors.UpstreamMessage(err); upstream != "" {
			text = "Error: " + upstream
		}
		return "", appErrors.Wrap(err, appErrors.ErrWithdrawalFailed.Code, appErrors.ErrWithdrawalFailed.Status, text)
	}
	s.logger.Info("withdrawal requested", zap.Int("staff_id", actor.StaffID), zap.Int("schedule_id", scheduleID), zap.String("date", date.String()))
	// The backend acknowledges with a bare status word.
	if message == "" || strings.EqualFold(message, "SUCCESS") {
		message = "Withdrawal request submitted successfully."
	}
	return message, nil
}

func daysPhrase(days int) string {
	if days%7 == 0 {
		weeks := days / 7
		if weeks == 1 {
			return "one week"
		}
		return numberWord(weeks) + " weeks"
	}
	if days == 1 {
		return "one day"
	}
	return numberWord(days) + " days"
}
