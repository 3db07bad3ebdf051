package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// RequestHistoryService lists the acting user's own requests.
type RequestHistoryService struct {
	fetcher RequestHistoryFetcher
	logger  *zap.Logger
}

// NewRequestHistoryService constructs the service.
func NewRequestHistoryService(fetcher RequestHistoryFetcher, logger *zap.Logger) *RequestHistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHistoryService{fetcher: fetcher, logger: logger}
}

// History returns the actor's requests newest first, optionally only those in status.
func (s *RequestHistoryService) History(ctx context.Context, actor models.ActingUser, status string) ([]models.RequestRecord, error) {
	var want models.RequestStatus
	if status != "" {
		parsed, ok := models.ParseRequestStatus(status)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of PENDING, APPROVED, REJECTED, WITHDRAWN or EXPIRED")
		}
		want = parsed
	}

	records, err := s.fetcher.FetchStaffRequests(ctx, actor.StaffID)
	if err != nil {
		s.logger.Warn("request history failed", zap.Int("staff_id", actor.StaffID), zap.Error(err))
		return nil, err
	}

	filtered := make([]models.RequestRecord, 0, len(records))
	for _, record := range records {
		if want != "" && record.Status != want {
			continue
		}
		filtered = append(filtered, record)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if !a.RequestDate.Equal(b.RequestDate) {
			return a.RequestDate.After(b.RequestDate)
		}
		return a.RequestID > b.RequestID
	})
	return filtered, nil
}
