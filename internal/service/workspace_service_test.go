package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/models"
)

type backendStub struct {
	submitterStub
	statusUpdaterStub
	pendingFetcherStub
	profileFetcherStub
	scheduleFetcherStub
	withdrawalSubmitterStub
}

func TestWorkspaceRegistryReusesAndSweeps(t *testing.T) {
	now := time.Date(2024, 10, 30, 9, 0, 0, 0, time.UTC)
	registry := NewWorkspaceRegistry(WorkspaceDeps{Backend: &backendStub{}, Rules: newTestRules(), IdleTTL: time.Hour})
	registry.now = func() time.Time { return now }

	first := registry.Get(testActor)
	_, err := first.Builder.SetField(FieldReason, "Plumber visit")
	require.NoError(t, err)

	assert.Same(t, first, registry.Get(testActor))
	assert.Equal(t, "Plumber visit", registry.Get(testActor).Builder.Snapshot().ReasonForApplying)

	other := registry.Get(managerActor)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, registry.Len())

	now = now.Add(30 * time.Minute)
	registry.Get(managerActor)
	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, registry.Sweep())
	assert.Equal(t, 1, registry.Len())
}

func TestWorkspaceRegistryRebuildsOnProfileChange(t *testing.T) {
	registry := NewWorkspaceRegistry(WorkspaceDeps{Backend: &backendStub{}, Rules: newTestRules()})
	first := registry.Get(testActor)

	moved := testActor
	moved.Department = "Finance"
	second := registry.Get(moved)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, registry.Len())
}

func TestWorkspaceWiresWorkflowToQueue(t *testing.T) {
	backend := &backendStub{}
	backend.pendingFetcherStub.pending = []models.PendingRequest{samplePending(11)}
	registry := NewWorkspaceRegistry(WorkspaceDeps{Backend: backend, Rules: newTestRules()})
	ws := registry.Get(managerActor)

	req, err := ws.Queue.Find(context.Background(), 11)
	require.NoError(t, err)
	_, err = ws.Workflow.BeginApprove(req)
	require.NoError(t, err)
	require.NoError(t, ws.Workflow.ConfirmApprove(context.Background()))
	assert.Empty(t, ws.Queue.Items())
}
