package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/models"
)

type profileFetcherStub struct {
	profiles map[int]models.StaffProfile
	calls    int32
	delay    time.Duration
}

func (p *profileFetcherStub) FetchStaffProfile(ctx context.Context, staffID int) (*models.StaffProfile, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	profile, ok := p.profiles[staffID]
	if !ok {
		return nil, errors.New("staff not found")
	}
	return &profile, nil
}

func TestStaffDirectoryCachesLocally(t *testing.T) {
	fetcher := &profileFetcherStub{profiles: map[int]models.StaffProfile{
		140002: {StaffID: 140002, FirstName: "Susan", LastName: "Goh"},
	}}
	dir := NewStaffDirectoryService(fetcher, nil, time.Hour, nil)

	for i := 0; i < 3; i++ {
		name, err := dir.DisplayName(context.Background(), 140002)
		require.NoError(t, err)
		assert.Equal(t, "Susan Goh", name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestStaffDirectoryCollapsesConcurrentLookups(t *testing.T) {
	fetcher := &profileFetcherStub{
		profiles: map[int]models.StaffProfile{140002: {StaffID: 140002, FirstName: "Susan"}},
		delay:    50 * time.Millisecond,
	}
	dir := NewStaffDirectoryService(fetcher, nil, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = dir.Profile(context.Background(), 140002)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestStaffDirectoryNamesSchedulesRetry(t *testing.T) {
	fetcher := &profileFetcherStub{profiles: map[int]models.StaffProfile{
		140002: {StaffID: 140002, FirstName: "Susan", LastName: "Goh"},
	}}
	var retried []int
	dir := NewStaffDirectoryService(fetcher, nil, time.Hour, nil, WithProfilePrefetcher(func(ids []int) {
		retried = ids
	}))

	names := dir.Names(context.Background(), []int{140002, 999, 140002})
	assert.Equal(t, map[int]string{140002: "Susan Goh", 999: "Staff #999"}, names)
	assert.Equal(t, []int{999}, retried)

	assert.Error(t, dir.Prefetch(context.Background(), []int{999}))
	assert.NoError(t, dir.Prefetch(context.Background(), []int{140002}))
}

func TestStaffDirectoryLocalEntriesExpire(t *testing.T) {
	fetcher := &profileFetcherStub{profiles: map[int]models.StaffProfile{
		140002: {StaffID: 140002, FirstName: "Susan", LastName: "Goh"},
	}}
	now := time.Date(2024, time.October, 30, 9, 0, 0, 0, time.UTC)
	dir := NewStaffDirectoryService(fetcher, nil, time.Hour, nil, WithDirectoryClock(func() time.Time { return now }))

	name, err := dir.DisplayName(context.Background(), 140002)
	require.NoError(t, err)
	assert.Equal(t, "Susan Goh", name)

	fetcher.profiles[140002] = models.StaffProfile{StaffID: 140002, FirstName: "Susan", LastName: "Tan"}
	now = now.Add(59 * time.Minute)
	name, _ = dir.DisplayName(context.Background(), 140002)
	assert.Equal(t, "Susan Goh", name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))

	now = now.Add(time.Minute)
	name, err = dir.DisplayName(context.Background(), 140002)
	require.NoError(t, err)
	assert.Equal(t, "Susan Tan", name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}
