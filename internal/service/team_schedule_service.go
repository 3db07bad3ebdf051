package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// TeamScope names whose schedules a team view covers.
type TeamScope struct {
	Kind string `json:"kind"`
	// ManagerID is zero for the company-wide view.
	ManagerID int `json:"manager_id,omitempty"`
}

const (
	scopeTeam    = "team"
	scopeCompany = "company"
)

// TeamCalendar is the per-day headcount view for a scope.
type TeamCalendar struct {
	Scope    TeamScope        `json:"scope"`
	Range    DateRange        `json:"range"`
	Days     []models.TeamDay `json:"dates"`
	Warnings []string         `json:"warnings,omitempty"`
}

// TeamScheduleService shows who works from home across a reporting line.
// HR sees the whole company, managers their direct reports, staff their own manager's team.
type TeamScheduleService struct {
	rules   *DateRuleService
	fetcher TeamScheduleFetcher
	cfg     AggregatorConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewTeamScheduleService constructs the service with the same chunking rules as the personal calendar.
func NewTeamScheduleService(rules *DateRuleService, fetcher TeamScheduleFetcher, cfg AggregatorConfig, metrics *MetricsService, logger *zap.Logger) *TeamScheduleService {
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
	return &TeamScheduleService{rules: rules, fetcher: fetcher, cfg: cfg, metrics: metrics, logger: logger}
}

// ScopeFor resolves the team the actor may look at.
func (s *TeamScheduleService) ScopeFor(actor models.ActingUser) (TeamScope, error) {
	switch actor.Role {
	case models.RoleHR:
		return TeamScope{Kind: scopeCompany}, nil
	case models.RoleManager:
		return TeamScope{Kind: scopeTeam, ManagerID: actor.StaffID}, nil
	}
	if actor.ManagerID <= 0 {
		return TeamScope{}, appErrors.Clone(appErrors.ErrForbidden, "no reporting manager on record")
	}
	return TeamScope{Kind: scopeTeam, ManagerID: actor.ManagerID}, nil
}

// DefaultRange is the selectable window around today.
func (s *TeamScheduleService) DefaultRange() DateRange {
	start, end := s.rules.Window(s.rules.Today())
	return DateRange{Start: start, End: end}
}

// Summary loads per-day WFH counts for the actor's scope over rng, clamped to the selectable window.
// Chunks that fail are reported as warnings; the call fails only when every chunk fails.
func (s *TeamScheduleService) Summary(ctx context.Context, actor models.ActingUser, rng DateRange) (TeamCalendar, error) {
	scope, err := s.ScopeFor(actor)
	if err != nil {
		return TeamCalendar{}, err
	}
	if rng, err = clampToWindow(s.rules, rng); err != nil {
		return TeamCalendar{}, err
	}
	chunks, err := planChunks(rng, s.cfg.ChunkDays, s.cfg.MaxChunks)
	if err != nil {
		return TeamCalendar{}, err
	}

	outcomes := fetchChunks(ctx, chunks, s.cfg.MaxParallel, s.metrics.ObserveChunkFetch,
		func(ctx context.Context, chunk DateRange) ([]models.TeamDay, error) {
			return s.fetcher.FetchTeamScheduleSummary(ctx, scope.ManagerID, chunk.Start, chunk.End)
		})
	days, failures, err := collectChunks(outcomes, len(chunks), false, func(chunk DateRange, err error) {
		s.logger.Warn("team schedule chunk failed",
			zap.String("scope", scope.Kind),
			zap.Int("manager_id", scope.ManagerID),
			zap.String("range", chunk.String()),
			zap.Error(err),
		)
	})
	if err != nil {
		return TeamCalendar{}, err
	}

	for i := range days {
		days[i].FillOfficeCounts()
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	if days == nil {
		days = []models.TeamDay{}
	}
	return TeamCalendar{
		Scope:    scope,
		Range:    rng,
		Days:     days,
		Warnings: LoadResult{Failures: failures}.Warnings(),
	}, nil
}

// Detail lists where each member of the actor's scope works on date.
func (s *TeamScheduleService) Detail(ctx context.Context, actor models.ActingUser, date models.Date) (*models.TeamDayDetail, error) {
	scope, err := s.ScopeFor(actor)
	if err != nil {
		return nil, err
	}
	if err := s.rules.CheckSelectable(date, s.rules.Today()); err != nil {
		return nil, err
	}
	detail, err := s.fetcher.FetchTeamScheduleDetail(ctx, scope.ManagerID, date)
	if err != nil {
		s.logger.Warn("team schedule detail failed", zap.String("scope", scope.Kind), zap.String("date", date.String()), zap.Error(err))
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	if detail == nil {
		detail = &models.TeamDayDetail{Date: date}
	}
	if detail.Staff == nil {
		detail.Staff = []models.TeamMemberStatus{}
	}
	sort.SliceStable(detail.Staff, func(i, j int) bool {
		return strings.ToLower(detail.Staff[i].Name) < strings.ToLower(detail.Staff[j].Name)
	})
	return detail, nil
}
