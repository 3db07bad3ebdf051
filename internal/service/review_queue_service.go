package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// PendingItem is a pending request labelled with the requester's name.
type PendingItem struct {
	models.PendingRequest
	RequesterName string `json:"requester_name"`
}

type staffNameResolver interface {
	Names(ctx context.Context, ids []int) map[int]string
}

// ReviewQueueService keeps the manager's working set of pending requests.
type ReviewQueueService struct {
	managerID int
	fetcher   PendingFetcher
	names     staffNameResolver
	logger    *zap.Logger

	mu     sync.RWMutex
	items  []PendingItem
	loaded bool
}

// NewReviewQueueService constructs an empty queue for managerID.
func NewReviewQueueService(managerID int, fetcher PendingFetcher, names staffNameResolver, logger *zap.Logger) *ReviewQueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewQueueService{managerID: managerID, fetcher: fetcher, names: names, logger: logger}
}

// Refresh re-fetches the pending list, replacing the working set.
func (s *ReviewQueueService) Refresh(ctx context.Context) ([]PendingItem, error) {
	pending, err := s.fetcher.FetchPendingRequests(ctx, s.managerID)
	if err != nil {
		s.logger.Warn("fetch pending requests failed", zap.Int("manager_id", s.managerID), zap.Error(err))
		return s.Items(), err
	}

	ids := make([]int, 0, len(pending))
	for _, req := range pending {
		ids = append(ids, req.StaffID)
	}
	var names map[int]string
	if s.names != nil && len(ids) > 0 {
		names = s.names.Names(ctx, ids)
	}

	items := make([]PendingItem, 0, len(pending))
	for _, req := range pending {
		name := names[req.StaffID]
		if name == "" {
			name = fallbackStaffName(req.StaffID)
		}
		items = append(items, PendingItem{PendingRequest: req, RequesterName: name})
	}

	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.mu.Unlock()

	return s.Items(), nil
}

// Items returns a copy of the working set.
func (s *ReviewQueueService) Items() []PendingItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingItem, len(s.items))
	copy(out, s.items)
	return out
}

// Find looks up a request in the working set, loading it first if it was never fetched.
func (s *ReviewQueueService) Find(ctx context.Context, requestID int) (models.PendingRequest, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		if _, err := s.Refresh(ctx); err != nil {
			return models.PendingRequest{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.RequestID == requestID {
			return item.PendingRequest, nil
		}
	}
	return models.PendingRequest{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("pending request %d not found", requestID))
}

// Remove drops a resolved request from the working set.
func (s *ReviewQueueService) Remove(requestID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.RequestID != requestID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}
