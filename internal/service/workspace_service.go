package service

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
)

// Workspace holds one staff member's stateful components.
type Workspace struct {
	Actor    models.ActingUser
	Builder  *RequestBuilderService
	Workflow *ApprovalWorkflowService
	Queue    *ReviewQueueService
	Calendar *ScheduleAggregatorService

	lastSeen time.Time
}

// WorkspaceDeps are the shared collaborators every workspace is built from.
type WorkspaceDeps struct {
	Backend   Backend
	Rules     *DateRuleService
	Directory *StaffDirectoryService
	Validator *validator.Validate
	Metrics   *MetricsService
	Logger    *zap.Logger
	Calendar  AggregatorConfig
	IdleTTL   time.Duration
}

// WorkspaceRegistry owns per-user workspaces keyed by staff id.
type WorkspaceRegistry struct {
	deps WorkspaceDeps
	now  func() time.Time

	mu    sync.Mutex
	items map[int]*Workspace
}

// NewWorkspaceRegistry constructs an empty registry.
func NewWorkspaceRegistry(deps WorkspaceDeps) *WorkspaceRegistry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = 2 * time.Hour
	}
	return &WorkspaceRegistry{deps: deps, now: time.Now, items: make(map[int]*Workspace)}
}

// Get returns the actor's workspace, creating it on first use. A changed profile starts a fresh workspace.
func (r *WorkspaceRegistry) Get(actor models.ActingUser) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if ws, ok := r.items[actor.StaffID]; ok && ws.Actor == actor {
		ws.lastSeen = now
		return ws
	}

	ws := r.build(actor)
	ws.lastSeen = now
	r.items[actor.StaffID] = ws
	r.deps.Metrics.SetActiveWorkspaces(len(r.items))
	r.deps.Logger.Debug("workspace created", zap.Int("staff_id", actor.StaffID), zap.String("role", string(actor.Role)))
	return ws
}

// Sweep evicts workspaces idle longer than the configured TTL and returns how many were removed.
func (r *WorkspaceRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.deps.IdleTTL)
	removed := 0
	for id, ws := range r.items {
		if ws.lastSeen.Before(cutoff) {
			delete(r.items, id)
			removed++
		}
	}
	r.deps.Metrics.SetActiveWorkspaces(len(r.items))
	return removed
}

// Len returns the number of live workspaces.
func (r *WorkspaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *WorkspaceRegistry) build(actor models.ActingUser) *Workspace {
	logger := r.deps.Logger.With(zap.Int("staff_id", actor.StaffID))
	var names staffNameResolver
	if r.deps.Directory != nil {
		names = r.deps.Directory
	}
	queue := NewReviewQueueService(actor.StaffID, r.deps.Backend, names, logger)
	return &Workspace{
		Actor:    actor,
		Builder:  NewRequestBuilderService(actor, r.deps.Rules, r.deps.Backend, r.deps.Validator, r.deps.Metrics, logger),
		Workflow: NewApprovalWorkflowService(actor, r.deps.Backend, queue, r.deps.Metrics, logger),
		Queue:    queue,
		Calendar: NewScheduleAggregatorService(actor.StaffID, r.deps.Rules, r.deps.Backend, r.deps.Calendar, r.deps.Metrics, logger),
	}
}
