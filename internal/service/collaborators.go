package service

import (
	"context"

	"github.com/noah-isme/wfh-scheduler/internal/models"
)

// RequestSubmitter stores a new WFH request and returns the backend's confirmation message.
type RequestSubmitter interface {
	SubmitRequest(ctx context.Context, req models.WfhRequest) (string, error)
}

// PendingFetcher lists requests awaiting the given manager's decision.
type PendingFetcher interface {
	FetchPendingRequests(ctx context.Context, managerID int) ([]models.PendingRequest, error)
}

// ProfileFetcher resolves staff details used to label requests.
type ProfileFetcher interface {
	FetchStaffProfile(ctx context.Context, staffID int) (*models.StaffProfile, error)
}

// StatusUpdater records a manager decision.
type StatusUpdater interface {
	UpdateRequestStatus(ctx context.Context, update models.StatusUpdate) (string, error)
}

// ScheduleFetcher returns the per-day schedule summary for an inclusive range.
type ScheduleFetcher interface {
	FetchScheduleSummary(ctx context.Context, staffID int, start, end models.Date) ([]models.ScheduleDay, error)
}

// WithdrawalSubmitter files a request to cancel an approved WFH day.
type WithdrawalSubmitter interface {
	SubmitWithdrawal(ctx context.Context, req models.WithdrawalRequest) (string, error)
}

// Backend bundles every collaborator an adapter must provide.
type Backend interface {
	RequestSubmitter
	PendingFetcher
	ProfileFetcher
	StatusUpdater
	ScheduleFetcher
	WithdrawalSubmitter
}

// RequestExpirer retires pending requests that start before cutoff, along with their schedules.
type RequestExpirer interface {
	ExpireStaleRequests(ctx context.Context, cutoff models.Date) (string, error)
}

// RequestHistoryFetcher lists every request a staff member has filed.
type RequestHistoryFetcher interface {
	FetchStaffRequests(ctx context.Context, staffID int) ([]models.RequestRecord, error)
}

// TeamScheduleFetcher reports approved WFH days for the staff reporting to managerID.
// A zero managerID covers every staff member.
type TeamScheduleFetcher interface {
	FetchTeamScheduleSummary(ctx context.Context, managerID int, start, end models.Date) ([]models.TeamDay, error)
	FetchTeamScheduleDetail(ctx context.Context, managerID int, date models.Date) (*models.TeamDayDetail, error)
}

// Store is a Backend that also serves the team, history and expiry operations.
type Store interface {
	Backend
	RequestExpirer
	RequestHistoryFetcher
	TeamScheduleFetcher
}
