package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

const (
	staffProfileCachePrefix = "wfh:staff:profile:"
	nameLookupParallelism   = 4
)

// StaffDirectoryService resolves staff profiles through a local map, the shared cache and finally the backend.
type StaffDirectoryService struct {
	fetcher  ProfileFetcher
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
	prefetch func(ids []int)

	now   func() time.Time
	group singleflight.Group
	mu    sync.RWMutex
	local map[int]localProfile
}

type localProfile struct {
	profile models.StaffProfile
	expires time.Time
}

// StaffDirectoryOption configures the directory.
type StaffDirectoryOption func(*StaffDirectoryService)

// WithProfilePrefetcher registers a hook that retries failed lookups in the background.
func WithProfilePrefetcher(fn func(ids []int)) StaffDirectoryOption {
	return func(s *StaffDirectoryService) {
		s.prefetch = fn
	}
}

// WithDirectoryClock overrides the clock used to expire local entries.
func WithDirectoryClock(now func() time.Time) StaffDirectoryOption {
	return func(s *StaffDirectoryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStaffDirectoryService constructs the directory. cache may be nil.
// Local entries live for ttl like the shared cache; a non-positive ttl keeps them until Forget.
func NewStaffDirectoryService(fetcher ProfileFetcher, cache *CacheService, ttl time.Duration, logger *zap.Logger, opts ...StaffDirectoryOption) *StaffDirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &StaffDirectoryService{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		local:   make(map[int]localProfile),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Profile returns the staff member's profile, fetching it at most once concurrently.
func (s *StaffDirectoryService) Profile(ctx context.Context, staffID int) (*models.StaffProfile, error) {
	if profile, ok := s.lookupLocal(staffID); ok {
		return &profile, nil
	}

	key := staffProfileCachePrefix + strconv.Itoa(staffID)
	var cached models.StaffProfile
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		s.storeLocal(cached)
		return &cached, nil
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		profile, err := s.fetcher.FetchStaffProfile(ctx, staffID)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("staff %d not found", staffID))
		}
		s.storeLocal(*profile)
		if err := s.cache.Set(ctx, key, profile, s.ttl); err != nil {
			s.logger.Debug("profile cache write skipped", zap.Int("staff_id", staffID), zap.Error(err))
		}
		return *profile, nil
	})
	if err != nil {
		return nil, err
	}
	profile := value.(models.StaffProfile)
	return &profile, nil
}

// DisplayName returns the staff member's full name, or a placeholder when it cannot be resolved.
func (s *StaffDirectoryService) DisplayName(ctx context.Context, staffID int) (string, error) {
	profile, err := s.Profile(ctx, staffID)
	if err != nil {
		return fallbackStaffName(staffID), err
	}
	if name := profile.FullName(); name != "" {
		return name, nil
	}
	return fallbackStaffName(staffID), nil
}

// Names resolves display names for ids concurrently. Failed lookups get a placeholder and are handed to the prefetcher.
func (s *StaffDirectoryService) Names(ctx context.Context, ids []int) map[int]string {
	unique := uniqueIDs(ids)
	names := make(map[int]string, len(unique))
	var (
		mu     sync.Mutex
		failed []int
	)

	g := new(errgroup.Group)
	g.SetLimit(nameLookupParallelism)
	for _, id := range unique {
		id := id
		g.Go(func() error {
			name, err := s.DisplayName(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			names[id] = name
			if err != nil {
				failed = append(failed, id)
				s.logger.Warn("staff name lookup failed", zap.Int("staff_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 && s.prefetch != nil {
		sort.Ints(failed)
		s.prefetch(failed)
	}
	return names
}

// Prefetch warms the directory for ids, returning the combined lookup errors.
func (s *StaffDirectoryService) Prefetch(ctx context.Context, ids []int) error {
	var errs []error
	for _, id := range uniqueIDs(ids) {
		if _, err := s.Profile(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("staff %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Forget drops a profile from the local map and the shared cache.
func (s *StaffDirectoryService) Forget(ctx context.Context, staffID int) error {
	s.mu.Lock()
	delete(s.local, staffID)
	s.mu.Unlock()
	return s.cache.Invalidate(ctx, staffProfileCachePrefix+strconv.Itoa(staffID))
}

func (s *StaffDirectoryService) lookupLocal(staffID int) (models.StaffProfile, bool) {
	s.mu.RLock()
	entry, ok := s.local[staffID]
	s.mu.RUnlock()
	if !ok {
		return models.StaffProfile{}, false
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		s.mu.Lock()
		if current, still := s.local[staffID]; still && current.expires.Equal(entry.expires) {
			delete(s.local, staffID)
		}
		s.mu.Unlock()
		return models.StaffProfile{}, false
	}
	return entry.profile, true
}

func (s *StaffDirectoryService) storeLocal(profile models.StaffProfile) {
	entry := localProfile{profile: profile}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[profile.StaffID] = entry
}

func fallbackStaffName(staffID int) string {
	return "Staff #" + strconv.Itoa(staffID)
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	result := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
