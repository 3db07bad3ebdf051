package service

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// DraftField names an editable field of the application form.
type DraftField string

const (
	FieldStartDate   DraftField = "startDate"
	FieldEndDate     DraftField = "endDate"
	FieldIsRecurring DraftField = "isRecurring"
	FieldReason      DraftField = "reasonForApplying"
	FieldDuration    DraftField = "duration"
)

const (
	msgSubmitted        = "WFH request submitted successfully."
	msgInvalidStartDate = "Start date must be a valid date (YYYY-MM-DD)."
	msgInvalidEndDate   = "End date must be a valid date (YYYY-MM-DD)."
	msgIncompleteForm   = "Please complete all required fields before submitting."
)

// Draft is the in-progress application exactly as the user typed it.
type Draft struct {
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate"`
	IsRecurring       bool            `json:"isRecurring"`
	ReasonForApplying string          `json:"reasonForApplying"`
	Duration          models.Duration `json:"duration"`
}

// DraftValidation is the derived state recomputed after every edit.
type DraftValidation struct {
	StartDateError string `json:"startDateError"`
	EndDateError   string `json:"endDateError"`
	Submittable    bool   `json:"submittable"`
}

// DraftSnapshot is a consistent copy of a draft and its validation.
type DraftSnapshot struct {
	Draft
	DraftValidation
	Submitting bool `json:"submitting"`
}

// SubmitOutcome reports a successful submission.
type SubmitOutcome struct {
	Message        string `json:"message"`
	BackendMessage string `json:"backend_message,omitempty"`
}

// ValidateDraft derives field errors and submittability from a draft. It has no side effects.
func ValidateDraft(draft Draft, rules *DateRuleService, today models.Date) DraftValidation {
	var result DraftValidation

	start, startOK := parseDraftDate(draft.StartDate)
	if draft.StartDate != "" {
		switch {
		case !startOK:
			result.StartDateError = msgInvalidStartDate
		default:
			if err := rules.ValidateStart(start); err != nil {
				result.StartDateError = appErrors.FromError(err).Message
			} else if err := rules.CheckSelectable(start, today); err != nil {
				result.StartDateError = appErrors.FromError(err).Message
			}
		}
	}

	if draft.IsRecurring && draft.EndDate != "" {
		end, endOK := parseDraftDate(draft.EndDate)
		switch {
		case !endOK:
			result.EndDateError = msgInvalidEndDate
		case startOK:
			if err := rules.ValidateEnd(start, end); err != nil {
				result.EndDateError = appErrors.FromError(err).Message
			}
		}
	}

	result.Submittable = draft.StartDate != "" && result.StartDateError == "" &&
		strings.TrimSpace(draft.ReasonForApplying) != "" &&
		draft.Duration != "" &&
		(!draft.IsRecurring || (draft.EndDate != "" && result.EndDateError == ""))

	return result
}

func parseDraftDate(raw string) (models.Date, bool) {
	if raw == "" {
		return models.Date{}, false
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, false
	}
	return date, true
}

// RequestBuilderService holds one employee's application draft and submits it.
type RequestBuilderService struct {
	actor     models.ActingUser
	rules     *DateRuleService
	submitter RequestSubmitter
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger

	mu         sync.Mutex
	draft      Draft
	validation DraftValidation
	inFlight   bool
}

// NewRequestBuilderService constructs an empty draft for the acting user.
func NewRequestBuilderService(actor models.ActingUser, rules *DateRuleService, submitter RequestSubmitter, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RequestBuilderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestBuilderService{
		actor:     actor,
		rules:     rules,
		submitter: submitter,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Snapshot returns the current draft with its validation.
func (s *RequestBuilderService) Snapshot() DraftSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetField applies one edit and revalidates. Rejected edits leave the draft untouched.
func (s *RequestBuilderService) SetField(name DraftField, value string) (DraftSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return s.snapshotLocked(), appErrors.Clone(appErrors.ErrSubmitInFlight, "")
	}

	next := s.draft
	switch name {
	case FieldStartDate:
		next.StartDate = strings.TrimSpace(value)
	case FieldEndDate:
		next.EndDate = strings.TrimSpace(value)
	case FieldIsRecurring:
		recurring, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return s.snapshotLocked(), appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "isRecurring must be true or false")
		}
		next.IsRecurring = recurring
		if !recurring {
			next.EndDate = ""
		}
	case FieldReason:
		next.ReasonForApplying = value
	case FieldDuration:
		if strings.TrimSpace(value) == "" {
			next.Duration = ""
			break
		}
		duration, ok := models.ParseDuration(value)
		if !ok {
			return s.snapshotLocked(), appErrors.Clone(appErrors.ErrValidation, "duration must be one of FULL_DAY, HALF_DAY_AM, HALF_DAY_PM")
		}
		next.Duration = duration
	default:
		return s.snapshotLocked(), appErrors.Clone(appErrors.ErrValidation, "unknown field "+strconv.Quote(string(name)))
	}

	s.draft = next
	s.validation = ValidateDraft(s.draft, s.rules, s.rules.Today())
	return s.snapshotLocked(), nil
}

// IsSubmittable reports whether the draft can be sent.
func (s *RequestBuilderService) IsSubmittable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation.Submittable
}

// ToPayload builds the outbound request from a submittable draft.
func (s *RequestBuilderService) ToPayload() (models.WfhRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked()
}

// Reset clears every field and derived error.
func (s *RequestBuilderService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Submit sends the draft. Only one submission runs at a time; the draft is cleared on success and kept on failure.
func (s *RequestBuilderService) Submit(ctx context.Context) (SubmitOutcome, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return SubmitOutcome{}, appErrors.Clone(appErrors.ErrSubmitInFlight, "")
	}
	payload, err := s.payloadLocked()
	if err != nil {
		s.mu.Unlock()
		return SubmitOutcome{}, err
	}
	s.inFlight = true
	s.mu.Unlock()

	backendMessage, err := s.submitter.SubmitRequest(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		s.metrics.RecordSubmission(false)
		s.logger.Warn("wfh request submission failed",
			zap.Int("staff_id", payload.StaffID),
			zap.String("start_date", payload.StartDate.String()),
			zap.Error(err),
		)
		message := appErrors.ErrSubmissionFailed.Message
		if upstream := appErrors.UpstreamMessage(err); upstream != "" {
			message = "Error: " + upstream
		}
		return SubmitOutcome{}, appErrors.Wrap(err, appErrors.ErrSubmissionFailed.Code, appErrors.ErrSubmissionFailed.Status, message)
	}

	s.metrics.RecordSubmission(true)
	s.logger.Info("wfh request submitted",
		zap.Int("staff_id", payload.StaffID),
		zap.String("duration", string(payload.Duration)),
		zap.Bool("recurring", payload.IsRecurring),
	)
	s.resetLocked()
	return SubmitOutcome{Message: msgSubmitted, BackendMessage: backendMessage}, nil
}

func (s *RequestBuilderService) snapshotLocked() DraftSnapshot {
	return DraftSnapshot{Draft: s.draft, DraftValidation: s.validation, Submitting: s.inFlight}
}

func (s *RequestBuilderService) resetLocked() {
	s.draft = Draft{}
	s.validation = DraftValidation{}
}

func (s *RequestBuilderService) payloadLocked() (models.WfhRequest, error) {
	// Revalidate so a draft that aged out of the window is not sent.
	s.validation = ValidateDraft(s.draft, s.rules, s.rules.Today())
	if !s.validation.Submittable {
		return models.WfhRequest{}, appErrors.Clone(appErrors.ErrIncompleteForm, msgIncompleteForm)
	}

	start, _ := parseDraftDate(s.draft.StartDate)
	payload := models.WfhRequest{
		StaffID:           s.actor.StaffID,
		ManagerID:         s.actor.ManagerID,
		Department:        s.actor.Department,
		Position:          s.actor.Position,
		ReasonForApplying: strings.TrimSpace(s.draft.ReasonForApplying),
		StartDate:         start,
		IsRecurring:       s.draft.IsRecurring,
		Duration:          s.draft.Duration,
	}
	if s.draft.IsRecurring {
		end, _ := parseDraftDate(s.draft.EndDate)
		payload.EndDate = &end
	}

	if err := s.validator.Struct(payload); err != nil {
		return models.WfhRequest{}, appErrors.Wrap(err, appErrors.ErrIncompleteForm.Code, appErrors.ErrIncompleteForm.Status, "request is missing staff details")
	}
	return payload, nil
}
