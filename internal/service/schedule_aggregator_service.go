package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
)

// DateRange is an inclusive span of days.
type DateRange struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// SplitRange cuts [start, end] into consecutive inclusive chunks of at most chunkDays days.
func SplitRange(start, end models.Date, chunkDays int) []DateRange {
	if chunkDays <= 0 || end.Before(start) {
		return nil
	}
	var chunks []DateRange
	for cursor := start; !cursor.After(end); cursor = cursor.AddDays(chunkDays) {
		last := cursor.AddDays(chunkDays - 1)
		if last.After(end) {
			last = end
		}
		chunks = append(chunks, DateRange{Start: cursor, End: last})
	}
	return chunks
}

// ChunkFailure records a chunk that could not be loaded.
type ChunkFailure struct {
	Range DateRange
	Err   error
}

// LoadResult is the merged output of a chunked load.
type LoadResult struct {
	// Days in merge order; later entries win for a repeated date.
	Days     []models.ScheduleDay
	Failures []ChunkFailure
	Chunks   int
}

// Warnings describes partial failures for display.
func (r LoadResult) Warnings() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	warnings := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		warnings = append(warnings, fmt.Sprintf("Schedule for %s to %s could not be loaded.", failure.Range.Start, failure.Range.End))
	}
	return warnings
}

type eventStyle struct {
	title   string
	color   string
	pending bool
}

var labelStyles = map[models.ScheduleLabel]eventStyle{
	models.LabelFullDay:        {title: "WFH (Full Day)", color: "#FFD93D"},
	models.LabelAM:             {title: "WFH (AM)", color: "#6BCB77"},
	models.LabelPM:             {title: "WFH (PM)", color: "#4D96FF"},
	models.LabelFullDayPending: {title: "WFH (Full Day) – Pending", color: "#FFD93D80", pending: true},
	models.LabelAMPending:      {title: "WFH (AM) – Pending", color: "#6BCB7780", pending: true},
	models.LabelPMPending:      {title: "WFH (PM) – Pending", color: "#4D96FF80", pending: true},
}

// CalendarView is what the calendar surface renders.
type CalendarView struct {
	Range    DateRange              `json:"range"`
	Events   []models.CalendarEvent `json:"events"`
	Warnings []string               `json:"warnings,omitempty"`
	LoadedAt *time.Time             `json:"loaded_at,omitempty"`
	// Stale marks a response whose own load was superseded by a newer refresh.
	Stale bool `json:"stale,omitempty"`
}

// AggregatorConfig tunes chunked loading.
type AggregatorConfig struct {
	ChunkDays   int
	MaxParallel int
	// MaxChunks caps the fan-out of one load; zero allows a year's worth of chunks.
	MaxChunks          int
	DeterministicMerge bool
}

// ScheduleAggregatorService loads a staff member's schedule in chunks and keeps the last rendered calendar.
type ScheduleAggregatorService struct {
	staffID int
	rules   *DateRuleService
	fetcher ScheduleFetcher
	cfg     AggregatorConfig
	metrics *MetricsService
	logger  *zap.Logger

	mu         sync.Mutex
	generation uint64
	view       CalendarView
	selected   models.Date
}

// NewScheduleAggregatorService constructs the aggregator for staffID.
func NewScheduleAggregatorService(staffID int, rules *DateRuleService, fetcher ScheduleFetcher, cfg AggregatorConfig, metrics *MetricsService, logger *zap.Logger) *ScheduleAggregatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkDays <= 0 {
		cfg.ChunkDays = 31
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	cfg.MaxChunks = chunkLimit(cfg.MaxChunks, cfg.ChunkDays)
	return &ScheduleAggregatorService{
		staffID: staffID,
		rules:   rules,
		fetcher: fetcher,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		view:    CalendarView{Events: []models.CalendarEvent{}},
	}
}

// DefaultRange is the selectable window around today.
func (s *ScheduleAggregatorService) DefaultRange() DateRange {
	start, end := s.rules.Window(s.rules.Today())
	return DateRange{Start: start, End: end}
}

// ClampRange narrows rng to the selectable window around today.
func (s *ScheduleAggregatorService) ClampRange(rng DateRange) (DateRange, error) {
	return clampToWindow(s.rules, rng)
}

// LoadRange fetches every chunk of [start, end] in parallel and merges results as they complete.
// It fails only when every chunk fails, and refuses ranges wider than the configured chunk limit.
func (s *ScheduleAggregatorService) LoadRange(ctx context.Context, staffID int, start, end models.Date) (LoadResult, error) {
	chunks, err := planChunks(DateRange{Start: start, End: end}, s.cfg.ChunkDays, s.cfg.MaxChunks)
	if err != nil {
		return LoadResult{}, err
	}

	outcomes := fetchChunks(ctx, chunks, s.cfg.MaxParallel, s.metrics.ObserveChunkFetch,
		func(ctx context.Context, rng DateRange) ([]models.ScheduleDay, error) {
			return s.fetcher.FetchScheduleSummary(ctx, staffID, rng.Start, rng.End)
		})
	days, failures, err := collectChunks(outcomes, len(chunks), s.cfg.DeterministicMerge, func(rng DateRange, err error) {
		s.logger.Warn("schedule chunk failed",
			zap.Int("staff_id", staffID),
			zap.String("range", rng.String()),
			zap.Error(err),
		)
	})
	return LoadResult{Days: days, Failures: failures, Chunks: len(chunks)}, err
}

// Aggregate folds schedule days into one event per date, last entry winning, sorted by date.
func (s *ScheduleAggregatorService) Aggregate(days []models.ScheduleDay) []models.CalendarEvent {
	byDate := make(map[models.Date]models.CalendarEvent, len(days))
	for _, day := range days {
		if day.Label == "" {
			continue
		}
		style, ok := labelStyles[day.Label]
		if !ok {
			s.logger.Warn("unknown schedule label dropped", zap.String("date", day.Date.String()), zap.String("label", string(day.Label)))
			continue
		}
		byDate[day.Date] = models.CalendarEvent{
			Date:            day.Date,
			Title:           style.title,
			BackgroundColor: style.color,
			IsPending:       style.pending,
		}
	}

	events := make([]models.CalendarEvent, 0, len(byDate))
	for _, event := range byDate {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events
}

// Refresh reloads the calendar for a range. A result superseded by a newer Refresh is discarded;
// when every chunk fails the previous events are kept and returned with the error.
func (s *ScheduleAggregatorService) Refresh(ctx context.Context, start, end models.Date) (CalendarView, error) {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	result, err := s.LoadRange(ctx, s.staffID, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		view := s.copyViewLocked()
		view.Stale = true
		return view, nil
	}
	if err != nil {
		return s.copyViewLocked(), err
	}

	loadedAt := time.Now().UTC()
	s.view = CalendarView{
		Range:    DateRange{Start: start, End: end},
		Events:   s.Aggregate(result.Days),
		Warnings: result.Warnings(),
		LoadedAt: &loadedAt,
	}
	return s.copyViewLocked(), nil
}

// View returns the last applied calendar.
func (s *ScheduleAggregatorService) View() CalendarView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyViewLocked()
}

// SelectDate accepts a clicked date only inside the selectable window.
func (s *ScheduleAggregatorService) SelectDate(date, today models.Date) error {
	if err := s.rules.CheckSelectable(date, today); err != nil {
		return err
	}
	s.mu.Lock()
	s.selected = date
	s.mu.Unlock()
	return nil
}

// Selected returns the last accepted selection.
func (s *ScheduleAggregatorService) Selected() models.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *ScheduleAggregatorService) copyViewLocked() CalendarView {
	view := s.view
	view.Events = append([]models.CalendarEvent(nil), s.view.Events...)
	if view.Events == nil {
		view.Events = []models.CalendarEvent{}
	}
	view.Warnings = append([]string(nil), s.view.Warnings...)
	return view
}
