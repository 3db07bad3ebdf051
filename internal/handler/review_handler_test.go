package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

func pendingRequest(id int) models.PendingRequest {
	return models.PendingRequest{
		RequestID:         id,
		StaffID:           140002,
		ManagerID:         140894,
		RequestDate:       models.NewDate(2024, time.October, 28),
		StartDate:         models.NewDate(2024, time.November, 4),
		ReasonForApplying: "Childcare",
		Duration:          models.DurationFullDay,
	}
}

func TestReviewHandlerApproveFlow(t *testing.T) {
	backend := &fakeBackend{pending: []models.PendingRequest{pendingRequest(7), pendingRequest(8)}}
	h := NewReviewHandler(newTestRegistry(backend))

	c, w := newTestContext(http.MethodGet, "/requests/pending", nil, &manager)
	h.Pending(c)
	require.Equal(t, http.StatusOK, w.Code)
	var items []service.PendingItem
	env := decode(t, w, &items)
	require.Len(t, items, 2)
	assert.Equal(t, float64(2), env.Meta["count"])

	c, w = newTestContext(http.MethodPost, "/requests/7/approve", nil, &manager)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.BeginApprove(c)
	require.Equal(t, http.StatusOK, w.Code)
	var state service.ReviewState
	decode(t, w, &state)
	require.NotNil(t, state.Staged)
	assert.Equal(t, 7, state.Staged.RequestID)

	c, w = newTestContext(http.MethodPost, "/review/approve/confirm", nil, &manager)
	h.ConfirmApprove(c)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &state)
	assert.Nil(t, state.Staged)
	require.Len(t, backend.updates, 1)
	assert.Equal(t, models.StatusUpdate{RequestID: 7, Status: models.RequestStatusApproved}, backend.updates[0])
}

func TestReviewHandlerRejectNeedsReason(t *testing.T) {
	backend := &fakeBackend{pending: []models.PendingRequest{pendingRequest(7)}}
	h := NewReviewHandler(newTestRegistry(backend))

	c, w := newTestContext(http.MethodPost, "/requests/7/reject", nil, &manager)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.BeginReject(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodPost, "/review/reject", map[string]string{"reason": "   "}, &manager)
	h.Reject(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var state service.ReviewState
	env := decode(t, w, &state)
	assert.Equal(t, appErrors.ErrReasonRequired.Code, env.Error.Code)
	require.NotNil(t, state.Staged)
	assert.Empty(t, backend.updates)

	c, w = newTestContext(http.MethodPost, "/review/reject", map[string]string{"reason": "Team offsite"}, &manager)
	h.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, backend.updates, 1)
	assert.Equal(t, "Team offsite", backend.updates[0].Reason)
}

func TestReviewHandlerApproveFailureSurfacesBackendMessage(t *testing.T) {
	backend := &fakeBackend{
		pending:   []models.PendingRequest{pendingRequest(7)},
		updateErr: appErrors.Clone(appErrors.ErrUpstream, "Request does not exist"),
	}
	h := NewReviewHandler(newTestRegistry(backend))

	c, _ := newTestContext(http.MethodPost, "/requests/7/approve", nil, &manager)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.BeginApprove(c)

	c, w := newTestContext(http.MethodPost, "/review/approve/confirm", nil, &manager)
	h.ConfirmApprove(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
	var state service.ReviewState
	env := decode(t, w, &state)
	assert.Equal(t, "Error approving request: Request does not exist", env.Error.Message)
	assert.Nil(t, state.Staged)
}

func TestReviewHandlerUnknownRequestAndCancel(t *testing.T) {
	h := NewReviewHandler(newTestRegistry(&fakeBackend{pending: []models.PendingRequest{pendingRequest(7)}}))

	c, w := newTestContext(http.MethodPost, "/requests/99/approve", nil, &manager)
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	h.BeginApprove(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newTestContext(http.MethodPost, "/requests/abc/approve", nil, &manager)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.BeginApprove(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, _ = newTestContext(http.MethodPost, "/requests/7/reject", nil, &manager)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.BeginReject(c)

	c, w = newTestContext(http.MethodDelete, "/review", nil, &manager)
	h.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	var state service.ReviewState
	decode(t, w, &state)
	assert.Nil(t, state.Staged)
	assert.Equal(t, service.ReviewActionNone, state.Action)
}
