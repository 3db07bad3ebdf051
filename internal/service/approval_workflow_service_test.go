package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

type statusUpdaterStub struct {
	mu      sync.Mutex
	updates []models.StatusUpdate
	err     error
	release chan struct{}
	entered chan struct{}
}

func (s *statusUpdaterStub) UpdateRequestStatus(ctx context.Context, update models.StatusUpdate) (string, error) {
	s.mu.Lock()
	s.updates = append(s.updates, update)
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return "", s.err
	}
	return "Request updated", nil
}

func (s *statusUpdaterStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type removerStub struct {
	removed []int
}

func (r *removerStub) Remove(requestID int) {
	r.removed = append(r.removed, requestID)
}

var managerActor = models.ActingUser{StaffID: 140894, Department: "Sales", Position: "Sales Manager", Role: models.RoleManager}

func samplePending(id int) models.PendingRequest {
	return models.PendingRequest{
		RequestID:         id,
		StaffID:           140002,
		RequestDate:       models.NewDate(2024, time.October, 28),
		StartDate:         models.NewDate(2024, time.October, 31),
		ReasonForApplying: "Plumber visit",
		Duration:          models.DurationFullDay,
	}
}

func TestApproveFlowRemovesFromQueue(t *testing.T) {
	updater := &statusUpdaterStub{}
	queue := &removerStub{}
	wf := NewApprovalWorkflowService(managerActor, updater, queue, nil, nil)

	state, err := wf.BeginApprove(samplePending(7))
	require.NoError(t, err)
	require.NotNil(t, state.Staged)
	assert.Equal(t, ReviewActionApprove, state.Action)
	assert.Equal(t, 0, updater.count())

	require.NoError(t, wf.ConfirmApprove(context.Background()))
	require.Equal(t, 1, updater.count())
	assert.Equal(t, models.StatusUpdate{RequestID: 7, Status: models.RequestStatusApproved}, updater.updates[0])
	assert.Equal(t, []int{7}, queue.removed)
	assert.Equal(t, ReviewState{}, wf.State())
}

func TestApproveFailureClearsStagedAndReportsMessage(t *testing.T) {
	updater := &statusUpdaterStub{err: appErrors.Clone(appErrors.ErrUpstream, "Request already processed")}
	queue := &removerStub{}
	wf := NewApprovalWorkflowService(managerActor, updater, queue, nil, nil)

	_, err := wf.BeginApprove(samplePending(7))
	require.NoError(t, err)
	err = wf.ConfirmApprove(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrApprovalFailed))
	assert.Equal(t, "Error approving request: Request already processed", appErrors.FromError(err).Message)

	state := wf.State()
	assert.Nil(t, state.Staged)
	assert.Equal(t, "Error approving request: Request already processed", state.Error)
	assert.Empty(t, queue.removed)

	updater.err = errors.New("timeout")
	_, err = wf.BeginApprove(samplePending(8))
	require.NoError(t, err)
	err = wf.ConfirmApprove(context.Background())
	assert.Equal(t, "Error approving request", appErrors.FromError(err).Message)
}

func TestRejectWithBlankReasonNeverCallsBackend(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		updater := &statusUpdaterStub{}
		wf := NewApprovalWorkflowService(managerActor, updater, &removerStub{}, nil, nil)
		_, err := wf.BeginReject(samplePending(9))
		require.NoError(t, err)

		err = wf.SubmitReject(context.Background(), reason)
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrReasonRequired))
		assert.Equal(t, "Please provide a reason for rejection.", wf.State().Error)
		assert.NotNil(t, wf.State().Staged)
		assert.Equal(t, 0, updater.count())
	}
}

func TestRejectSendsTrimmedReason(t *testing.T) {
	updater := &statusUpdaterStub{}
	queue := &removerStub{}
	wf := NewApprovalWorkflowService(managerActor, updater, queue, nil, nil)
	_, err := wf.BeginReject(samplePending(9))
	require.NoError(t, err)

	require.NoError(t, wf.SubmitReject(context.Background(), "  Team offsite that day  "))
	require.Equal(t, 1, updater.count())
	assert.Equal(t, "Team offsite that day", updater.updates[0].Reason)
	assert.Equal(t, models.RequestStatusRejected, updater.updates[0].Status)
	assert.Equal(t, []int{9}, queue.removed)
	assert.Equal(t, ReviewState{}, wf.State())
}

func TestRejectFailurePreservesStagedAndReason(t *testing.T) {
	updater := &statusUpdaterStub{err: appErrors.Clone(appErrors.ErrUpstream, "Database unavailable")}
	wf := NewApprovalWorkflowService(managerActor, updater, &removerStub{}, nil, nil)
	_, err := wf.BeginReject(samplePending(9))
	require.NoError(t, err)

	err = wf.SubmitReject(context.Background(), "Team offsite")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRejectionFailed))

	state := wf.State()
	require.NotNil(t, state.Staged)
	assert.Equal(t, 9, state.Staged.RequestID)
	assert.Equal(t, "Team offsite", state.Reason)
	assert.Equal(t, "Error rejecting request: Database unavailable", state.Error)

	updater.err = nil
	require.NoError(t, wf.SubmitReject(context.Background(), state.Reason))
	assert.Equal(t, 2, updater.count())
}

func TestCancelAndNothingStaged(t *testing.T) {
	updater := &statusUpdaterStub{}
	wf := NewApprovalWorkflowService(managerActor, updater, nil, nil, nil)

	assert.True(t, errors.Is(wf.ConfirmApprove(context.Background()), appErrors.ErrNothingStaged))
	assert.True(t, errors.Is(wf.SubmitReject(context.Background(), "x"), appErrors.ErrNothingStaged))

	_, err := wf.BeginReject(samplePending(3))
	require.NoError(t, err)
	assert.True(t, errors.Is(wf.ConfirmApprove(context.Background()), appErrors.ErrNothingStaged))

	assert.Equal(t, ReviewState{}, wf.Cancel())
	assert.Equal(t, 0, updater.count())
}

func TestWorkflowSingleInFlight(t *testing.T) {
	updater := &statusUpdaterStub{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	wf := NewApprovalWorkflowService(managerActor, updater, nil, nil, nil)
	_, err := wf.BeginApprove(samplePending(4))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- wf.ConfirmApprove(context.Background()) }()

	select {
	case <-updater.entered:
	case <-time.After(time.Second):
		t.Fatal("approval did not reach the collaborator")
	}

	assert.True(t, errors.Is(wf.ConfirmApprove(context.Background()), appErrors.ErrWorkflowInFlight))
	_, err = wf.BeginReject(samplePending(5))
	assert.True(t, errors.Is(err, appErrors.ErrWorkflowInFlight))
	assert.True(t, wf.State().InFlight)

	close(updater.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, updater.count())
}
