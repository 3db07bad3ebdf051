package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// ReviewAction is the decision a staged request is waiting on.
type ReviewAction string

const (
	ReviewActionNone    ReviewAction = ""
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

const msgReasonRequired = "Please provide a reason for rejection."

// ReviewState is what the review surface renders.
type ReviewState struct {
	Staged   *models.PendingRequest `json:"staged"`
	Action   ReviewAction           `json:"action"`
	Reason   string                 `json:"reason"`
	Error    string                 `json:"error"`
	InFlight bool                   `json:"in_flight"`
}

type pendingRemover interface {
	Remove(requestID int)
}

// ApprovalWorkflowService drives a manager's approve/reject decisions one request at a time.
type ApprovalWorkflowService struct {
	actor   models.ActingUser
	updater StatusUpdater
	queue   pendingRemover
	metrics *MetricsService
	logger  *zap.Logger

	mu       sync.Mutex
	staged   *models.PendingRequest
	action   ReviewAction
	reason   string
	lastErr  string
	inFlight bool
	// seq changes whenever the staged item does, so late results never touch a newer one.
	seq uint64
}

// NewApprovalWorkflowService constructs a workflow for the acting manager.
func NewApprovalWorkflowService(actor models.ActingUser, updater StatusUpdater, queue pendingRemover, metrics *MetricsService, logger *zap.Logger) *ApprovalWorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalWorkflowService{actor: actor, updater: updater, queue: queue, metrics: metrics, logger: logger}
}

// State returns a copy of the current review state.
func (s *ApprovalWorkflowService) State() ReviewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// BeginApprove stages a request for approval confirmation.
func (s *ApprovalWorkflowService) BeginApprove(req models.PendingRequest) (ReviewState, error) {
	return s.begin(req, ReviewActionApprove)
}

// BeginReject stages a request and opens reason capture.
func (s *ApprovalWorkflowService) BeginReject(req models.PendingRequest) (ReviewState, error) {
	return s.begin(req, ReviewActionReject)
}

func (s *ApprovalWorkflowService) begin(req models.PendingRequest, action ReviewAction) (ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.stateLocked(), appErrors.Clone(appErrors.ErrWorkflowInFlight, "")
	}
	staged := req
	s.staged = &staged
	s.action = action
	s.reason = ""
	s.lastErr = ""
	s.seq++
	return s.stateLocked(), nil
}

// ConfirmApprove sends the approval. The staged request is cleared whatever the outcome.
func (s *ApprovalWorkflowService) ConfirmApprove(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrWorkflowInFlight, "")
	}
	if s.staged == nil || s.action != ReviewActionApprove {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNothingStaged, "no request is staged for approval")
	}
	req := *s.staged
	seq := s.seq
	s.inFlight = true
	s.mu.Unlock()

	_, err := s.updater.UpdateRequestStatus(ctx, models.StatusUpdate{
		RequestID: req.RequestID,
		Status:    models.RequestStatusApproved,
	})

	s.mu.Lock()
	s.inFlight = false
	current := seq == s.seq
	if current {
		s.staged = nil
		s.action = ReviewActionNone
		s.seq++
	}

	if err != nil {
		message := appErrors.ErrApprovalFailed.Message
		if upstream := appErrors.UpstreamMessage(err); upstream != "" {
			message += ": " + upstream
		}
		if current {
			s.lastErr = message
		}
		s.mu.Unlock()
		s.metrics.RecordDecision(string(models.RequestStatusApproved), false)
		s.logger.Warn("approve request failed", zap.Int("request_id", req.RequestID), zap.Int("manager_id", s.actor.StaffID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrApprovalFailed.Code, appErrors.ErrApprovalFailed.Status, message)
	}
	if current {
		s.lastErr = ""
	}
	s.mu.Unlock()

	s.metrics.RecordDecision(string(models.RequestStatusApproved), true)
	s.logger.Info("request approved", zap.Int("request_id", req.RequestID), zap.Int("manager_id", s.actor.StaffID))
	if s.queue != nil {
		s.queue.Remove(req.RequestID)
	}
	return nil
}

// SubmitReject sends a rejection with a mandatory reason. On failure the staged request and typed reason are kept.
func (s *ApprovalWorkflowService) SubmitReject(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrWorkflowInFlight, "")
	}
	if s.staged == nil || s.action != ReviewActionReject {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNothingStaged, "no request is staged for rejection")
	}
	s.reason = reason
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		s.lastErr = msgReasonRequired
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrReasonRequired, msgReasonRequired)
	}
	req := *s.staged
	seq := s.seq
	s.inFlight = true
	s.mu.Unlock()

	_, err := s.updater.UpdateRequestStatus(ctx, models.StatusUpdate{
		RequestID: req.RequestID,
		Status:    models.RequestStatusRejected,
		Reason:    trimmed,
	})

	s.mu.Lock()
	s.inFlight = false
	current := seq == s.seq

	if err != nil {
		message := appErrors.ErrRejectionFailed.Message
		if upstream := appErrors.UpstreamMessage(err); upstream != "" {
			message += ": " + upstream
		}
		if current {
			s.lastErr = message
		}
		s.mu.Unlock()
		s.metrics.RecordDecision(string(models.RequestStatusRejected), false)
		s.logger.Warn("reject request failed", zap.Int("request_id", req.RequestID), zap.Int("manager_id", s.actor.StaffID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrRejectionFailed.Code, appErrors.ErrRejectionFailed.Status, message)
	}

	if current {
		s.staged = nil
		s.action = ReviewActionNone
		s.reason = ""
		s.lastErr = ""
		s.seq++
	}
	s.mu.Unlock()

	s.metrics.RecordDecision(string(models.RequestStatusRejected), true)
	s.logger.Info("request rejected", zap.Int("request_id", req.RequestID), zap.Int("manager_id", s.actor.StaffID))
	if s.queue != nil {
		s.queue.Remove(req.RequestID)
	}
	return nil
}

// Cancel drops the staged request, reason and error without contacting the backend.
func (s *ApprovalWorkflowService) Cancel() ReviewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
	s.action = ReviewActionNone
	s.reason = ""
	s.lastErr = ""
	s.seq++
	return s.stateLocked()
}

func (s *ApprovalWorkflowService) stateLocked() ReviewState {
	state := ReviewState{Action: s.action, Reason: s.reason, Error: s.lastErr, InFlight: s.inFlight}
	if s.staged != nil {
		staged := *s.staged
		state.Staged = &staged
	}
	return state
}
