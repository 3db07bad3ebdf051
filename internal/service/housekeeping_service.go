package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
	"github.com/noah-isme/wfh-scheduler/pkg/jobs"
)

// DefaultExpiryAgeDays is how long a request may stay pending past its start date.
const DefaultExpiryAgeDays = 60

// Background job types.
const (
	JobWorkspaceSweep  = "workspace.sweep"
	JobProfilePrefetch = "profile.prefetch"
	JobExpireStale     = "request.expire"
)

type jobQueue interface {
	Handle(jobType string, handler jobs.Handler)
	TryEnqueue(job jobs.Job) bool
	Every(interval time.Duration, next func() jobs.Job)
}

type workspaceSweeper interface {
	Sweep() int
}

type profilePrefetcher interface {
	Prefetch(ctx context.Context, ids []int) error
}

// HousekeepingService runs idle workspace eviction, expiry of stale pending requests
// and retries of failed staff profile lookups off the request path.
type HousekeepingService struct {
	queue     jobQueue
	sweeper   workspaceSweeper
	directory profilePrefetcher
	expirer   RequestExpirer
	logger    *zap.Logger
	now       func() time.Time
}

// NewHousekeepingService registers the job handlers on queue. expirer may be nil.
func NewHousekeepingService(queue jobQueue, sweeper workspaceSweeper, directory profilePrefetcher, expirer RequestExpirer, logger *zap.Logger) *HousekeepingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HousekeepingService{queue: queue, sweeper: sweeper, directory: directory, expirer: expirer, logger: logger, now: time.Now}
	queue.Handle(JobWorkspaceSweep, s.sweep)
	queue.Handle(JobProfilePrefetch, s.prefetch)
	if expirer != nil {
		queue.Handle(JobExpireStale, s.expire)
	}
	return s
}

// ExpiryCutoff is the first start date that is still young enough to stay pending.
func (s *HousekeepingService) ExpiryCutoff(ageDays int) models.Date {
	if ageDays <= 0 {
		ageDays = DefaultExpiryAgeDays
	}
	return models.DateOf(s.now()).AddDays(-ageDays)
}

// ScheduleExpiry expires pending requests older than ageDays every interval.
func (s *HousekeepingService) ScheduleExpiry(interval time.Duration, ageDays int) {
	if s.expirer == nil {
		return
	}
	s.queue.Every(interval, func() jobs.Job {
		cutoff := s.ExpiryCutoff(ageDays)
		return jobs.Job{ID: "expire-" + cutoff.String(), Type: JobExpireStale, Payload: cutoff}
	})
}

// ExpireNow expires pending requests older than ageDays and returns the backend's summary.
func (s *HousekeepingService) ExpireNow(ctx context.Context, ageDays int) (string, error) {
	if s.expirer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "request expiry is not configured")
	}
	cutoff := s.ExpiryCutoff(ageDays)
	message, err := s.expirer.ExpireStaleRequests(ctx, cutoff)
	if err != nil {
		s.logger.Warn("stale request expiry failed", zap.String("cutoff", cutoff.String()), zap.Error(err))
		return "", err
	}
	s.logger.Info("stale requests expired", zap.String("cutoff", cutoff.String()), zap.String("result", message))
	return message, nil
}

// ScheduleSweeps evicts idle workspaces every interval.
func (s *HousekeepingService) ScheduleSweeps(interval time.Duration) {
	s.queue.Every(interval, func() jobs.Job {
		return jobs.Job{ID: "sweep-" + strconv.FormatInt(time.Now().Unix(), 10), Type: JobWorkspaceSweep}
	})
}

// SchedulePrefetch queues a profile lookup for ids. It never blocks the caller.
func (s *HousekeepingService) SchedulePrefetch(ids []int) {
	if len(ids) == 0 {
		return
	}
	job := jobs.Job{ID: fmt.Sprintf("prefetch-%v", ids), Type: JobProfilePrefetch, Payload: append([]int(nil), ids...)}
	if !s.queue.TryEnqueue(job) {
		s.logger.Debug("profile prefetch not queued", zap.Ints("staff_ids", ids))
	}
}

func (s *HousekeepingService) sweep(context.Context, jobs.Job) error {
	if removed := s.sweeper.Sweep(); removed > 0 {
		s.logger.Info("idle workspaces evicted", zap.Int("count", removed))
	}
	return nil
}

func (s *HousekeepingService) prefetch(ctx context.Context, job jobs.Job) error {
	ids, ok := job.Payload.([]int)
	if !ok {
		return nil
	}
	return s.directory.Prefetch(ctx, ids)
}

func (s *HousekeepingService) expire(ctx context.Context, job jobs.Job) error {
	cutoff, ok := job.Payload.(models.Date)
	if !ok {
		cutoff = s.ExpiryCutoff(DefaultExpiryAgeDays)
	}
	message, err := s.expirer.ExpireStaleRequests(ctx, cutoff)
	if err != nil {
		return err
	}
	s.logger.Info("stale requests expired", zap.String("cutoff", cutoff.String()), zap.String("result", message))
	return nil
}
