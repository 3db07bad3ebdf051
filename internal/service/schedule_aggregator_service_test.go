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

type scheduleFetcherStub struct {
	mu     sync.Mutex
	byFrom map[string][]models.ScheduleDay
	fail   map[string]bool
	calls  []DateRange
	gate   map[string]chan struct{}
}

func (s *scheduleFetcherStub) FetchScheduleSummary(ctx context.Context, staffID int, start, end models.Date) ([]models.ScheduleDay, error) {
	s.mu.Lock()
	s.calls = append(s.calls, DateRange{Start: start, End: end})
	gate := s.gate[start.String()]
	days := s.byFrom[start.String()]
	fail := s.fail[start.String()]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.New("backend unavailable")
	}
	return days, nil
}

func day(raw string, label models.ScheduleLabel) models.ScheduleDay {
	d, err := models.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return models.ScheduleDay{Date: d, Label: label}
}

func mustDate(raw string) models.Date {
	d, err := models.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestAggregator(fetcher ScheduleFetcher, cfg AggregatorConfig) *ScheduleAggregatorService {
	return NewScheduleAggregatorService(140002, newTestRules(), fetcher, cfg, nil, nil)
}

func TestSplitRange(t *testing.T) {
	chunks := SplitRange(mustDate("2024-10-01"), mustDate("2024-10-31"), 10)
	require.Len(t, chunks, 4)
	assert.Equal(t, "2024-10-01..2024-10-10", chunks[0].String())
	assert.Equal(t, "2024-10-31..2024-10-31", chunks[3].String())

	single := SplitRange(mustDate("2024-10-01"), mustDate("2024-10-01"), 31)
	require.Len(t, single, 1)

	assert.Nil(t, SplitRange(mustDate("2024-10-02"), mustDate("2024-10-01"), 31))
	assert.Nil(t, SplitRange(mustDate("2024-10-01"), mustDate("2024-10-31"), 0))
}

func TestAggregateLabelTable(t *testing.T) {
	agg := newTestAggregator(&scheduleFetcherStub{}, AggregatorConfig{})
	events := agg.Aggregate([]models.ScheduleDay{
		day("2024-10-30", models.LabelFullDay),
		day("2024-10-31", models.LabelAM),
		day("2024-11-01", models.LabelPMPending),
	})

	require.Len(t, events, 3)
	assert.Equal(t, "WFH (Full Day)", events[0].Title)
	assert.Equal(t, "#FFD93D", events[0].BackgroundColor)
	assert.False(t, events[0].IsPending)
	assert.Equal(t, "WFH (AM)", events[1].Title)
	assert.Equal(t, "WFH (PM) – Pending", events[2].Title)
	assert.True(t, events[2].IsPending)
}

func TestAggregateLastWriteWinsAndDropsUnknown(t *testing.T) {
	agg := newTestAggregator(&scheduleFetcherStub{}, AggregatorConfig{})
	events := agg.Aggregate([]models.ScheduleDay{
		day("2024-10-31", models.LabelAMPending),
		day("2024-10-30", "fullday"),
		day("2024-10-29", ""),
		day("2024-10-31", models.LabelAM),
	})

	require.Len(t, events, 1)
	assert.Equal(t, "2024-10-31", events[0].Date.String())
	assert.Equal(t, "WFH (AM)", events[0].Title)
	assert.False(t, events[0].IsPending)
}

func TestLoadRangeMergesInCompletionOrder(t *testing.T) {
	first := make(chan struct{})
	fetcher := &scheduleFetcherStub{
		byFrom: map[string][]models.ScheduleDay{
			"2024-10-01": {day("2024-10-10", models.LabelFullDay)},
			"2024-10-11": {day("2024-10-10", models.LabelPM)},
		},
		gate: map[string]chan struct{}{"2024-10-01": first},
	}
	agg := newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 10, MaxParallel: 2})

	go func() {
		// Release the earlier chunk only after the later one had time to finish.
		time.Sleep(50 * time.Millisecond)
		close(first)
	}()
	result, err := agg.LoadRange(context.Background(), 140002, mustDate("2024-10-01"), mustDate("2024-10-20"))
	require.NoError(t, err)
	require.Len(t, result.Days, 2)

	events := agg.Aggregate(result.Days)
	require.Len(t, events, 1)
	assert.Equal(t, "WFH (Full Day)", events[0].Title)
}

func TestLoadRangeDeterministicMerge(t *testing.T) {
	first := make(chan struct{})
	fetcher := &scheduleFetcherStub{
		byFrom: map[string][]models.ScheduleDay{
			"2024-10-01": {day("2024-10-10", models.LabelFullDay)},
			"2024-10-11": {day("2024-10-10", models.LabelPM)},
		},
		gate: map[string]chan struct{}{"2024-10-01": first},
	}
	agg := newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 10, MaxParallel: 2, DeterministicMerge: true})

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(first)
	}()
	result, err := agg.LoadRange(context.Background(), 140002, mustDate("2024-10-01"), mustDate("2024-10-20"))
	require.NoError(t, err)

	events := agg.Aggregate(result.Days)
	require.Len(t, events, 1)
	assert.Equal(t, "WFH (PM)", events[0].Title)
}

func TestRefreshPartialFailure(t *testing.T) {
	fetcher := &scheduleFetcherStub{
		byFrom: map[string][]models.ScheduleDay{
			"2024-10-01": {day("2024-10-02", models.LabelFullDay)},
			"2024-10-21": {day("2024-10-22", models.LabelAM)},
		},
		fail: map[string]bool{"2024-10-11": true},
	}
	agg := newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 10})

	view, err := agg.Refresh(context.Background(), mustDate("2024-10-01"), mustDate("2024-10-30"))
	require.NoError(t, err)
	assert.Len(t, fetcher.calls, 3)
	require.Len(t, view.Events, 2)
	assert.Equal(t, []string{"Schedule for 2024-10-11 to 2024-10-20 could not be loaded."}, view.Warnings)
}

func TestRefreshAllChunksFailedKeepsLastKnownGood(t *testing.T) {
	fetcher := &scheduleFetcherStub{
		byFrom: map[string][]models.ScheduleDay{"2024-10-01": {day("2024-10-02", models.LabelFullDay)}},
	}
	agg := newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 10})
	good, err := agg.Refresh(context.Background(), mustDate("2024-10-01"), mustDate("2024-10-10"))
	require.NoError(t, err)
	require.Len(t, good.Events, 1)

	fetcher.fail = map[string]bool{"2024-11-01": true, "2024-11-11": true, "2024-11-21": true}
	view, err := agg.Refresh(context.Background(), mustDate("2024-11-01"), mustDate("2024-11-30"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAllChunksFailed))
	assert.Equal(t, good.Events, view.Events)
	assert.Equal(t, good.Range, view.Range)
	assert.Equal(t, good.Events, agg.View().Events)
}

func TestRefreshDiscardsStaleGeneration(t *testing.T) {
	slow := make(chan struct{})
	fetcher := &scheduleFetcherStub{
		byFrom: map[string][]models.ScheduleDay{
			"2024-10-01": {day("2024-10-02", models.LabelFullDay)},
			"2024-11-01": {day("2024-11-04", models.LabelAM)},
		},
		gate: map[string]chan struct{}{"2024-10-01": slow},
	}
	agg := newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 31})

	staleDone := make(chan CalendarView, 1)
	go func() {
		view, _ := agg.Refresh(context.Background(), mustDate("2024-10-01"), mustDate("2024-10-31"))
		staleDone <- view
	}()
	require.Eventually(t, func() bool {
		fetcher.mu.Lock()
		defer fetcher.mu.Unlock()
		return len(fetcher.calls) == 1
	}, time.Second, 5*time.Millisecond)

	fresh, err := agg.Refresh(context.Background(), mustDate("2024-11-01"), mustDate("2024-11-30"))
	require.NoError(t, err)
	require.Len(t, fresh.Events, 1)

	close(slow)
	stale := <-staleDone
	assert.True(t, stale.Stale)
	assert.Equal(t, "2024-11-04", agg.View().Events[0].Date.String())
}

func TestSelectDateGating(t *testing.T) {
	agg := newTestAggregator(&scheduleFetcherStub{}, AggregatorConfig{})

	err := agg.SelectDate(mustDate("2024-08-01"), fixedToday)
	require.Error(t, err)
	assert.Equal(t, "You cannot select a date before two months ago.", appErrors.FromError(err).Message)
	assert.True(t, agg.Selected().IsZero())

	require.NoError(t, agg.SelectDate(mustDate("2024-11-04"), fixedToday))
	assert.Equal(t, "2024-11-04", agg.Selected().String())

	rng := agg.DefaultRange()
	assert.Equal(t, "2024-08-30", rng.Start.String())
}

func TestLoadRangeRefusesTooManyChunks(t *testing.T) {
	fetcher := &scheduleFetcherStub{}
	agg := newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 31})

	_, err := agg.LoadRange(context.Background(), 140002, mustDate("1900-01-01"), mustDate("2999-12-31"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fetcher.calls)

	agg = newTestAggregator(fetcher, AggregatorConfig{ChunkDays: 10, MaxChunks: 2})
	_, err = agg.LoadRange(context.Background(), 140002, mustDate("2024-10-01"), mustDate("2024-10-21"))
	require.Error(t, err)
	assert.Empty(t, fetcher.calls)

	_, err = agg.LoadRange(context.Background(), 140002, mustDate("2024-10-01"), mustDate("2024-10-20"))
	require.NoError(t, err)
	assert.Len(t, fetcher.calls, 2)
}

func TestClampRange(t *testing.T) {
	agg := newTestAggregator(&scheduleFetcherStub{}, AggregatorConfig{})

	rng, err := agg.ClampRange(DateRange{Start: mustDate("1900-01-01"), End: mustDate("2024-10-15")})
	require.NoError(t, err)
	assert.Equal(t, "2024-08-30..2024-10-15", rng.String())

	rng, err = agg.ClampRange(DateRange{Start: mustDate("2024-12-01"), End: mustDate("2999-12-31")})
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01..2025-01-30", rng.String())

	_, err = agg.ClampRange(DateRange{Start: mustDate("2025-02-01"), End: mustDate("2025-03-01")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
}
