package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// Schedule statuses stored on wfh_schedules rows.
const (
	scheduleStatusApproved  = "APPROVED"
	scheduleStatusWithdrawn = "WITHDRAWN"
)

// WfhRepository reads and writes WFH requests and their per-day schedules.
type WfhRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewWfhRepository constructs the repository.
func NewWfhRepository(db *sqlx.DB) *WfhRepository {
	return &WfhRepository{db: db, now: time.Now}
}

// SubmitRequest stores the request and one schedule per week from start to end in a single transaction.
// Dates already covered by a live schedule are skipped; a request that would create no schedule is refused.
func (r *WfhRepository) SubmitRequest(ctx context.Context, req models.WfhRequest) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin submit request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var endDate interface{}
	if req.EndDate != nil {
		endDate = *req.EndDate
	}

	const insertRequest = `INSERT INTO wfh_requests
	(staff_id, manager_id, request_date, start_date, end_date, duration, status, reason_for_applying)
	VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7)
	RETURNING request_id`
	var requestID int
	if err := tx.QueryRowxContext(ctx, insertRequest,
		req.StaffID, req.ManagerID, models.DateOf(r.now()), req.StartDate, endDate, req.Duration, req.ReasonForApplying,
	).Scan(&requestID); err != nil {
		return "", fmt.Errorf("insert wfh request: %w", err)
	}

	const existing = `SELECT EXISTS (
		SELECT 1 FROM wfh_schedules
		WHERE staff_id = $1 AND date = $2 AND status NOT IN ('REJECTED', 'EXPIRED', 'WITHDRAWN')
	)`
	const insertSchedule = `INSERT INTO wfh_schedules
	(request_id, staff_id, manager_id, date, duration, status, dept, position)
	VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7)`

	created := 0
	for _, date := range weeklyDates(req.StartDate, req.EndDate) {
		var taken bool
		if err := tx.GetContext(ctx, &taken, existing, req.StaffID, date); err != nil {
			return "", fmt.Errorf("check schedule %s: %w", date, err)
		}
		if taken {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertSchedule,
			requestID, req.StaffID, req.ManagerID, date, req.Duration, req.Department, req.Position,
		); err != nil {
			return "", fmt.Errorf("insert schedule %s: %w", date, err)
		}
		created++
	}

	if created == 0 {
		return "", appErrors.Clone(appErrors.ErrUpstream, "No schedules were created")
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit submit request: %w", err)
	}
	return fmt.Sprintf("Request created successfully with %d schedule(s)", created), nil
}

// FetchPendingRequests lists the manager's pending requests, oldest first.
func (r *WfhRepository) FetchPendingRequests(ctx context.Context, managerID int) ([]models.PendingRequest, error) {
	const query = `SELECT request_id, staff_id, manager_id, request_date, start_date, end_date,
	reason_for_applying, duration, end_date IS NOT NULL AS is_recurring
	FROM wfh_requests
	WHERE manager_id = $1 AND status = 'PENDING'
	ORDER BY request_date, request_id`
	var pending []models.PendingRequest
	if err := r.db.SelectContext(ctx, &pending, query, managerID); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return pending, nil
}

// UpdateRequestStatus resolves a pending request and cascades the decision to its schedules.
// Approving a withdrawal withdraws the schedule; rejecting one hands the schedule back to its original request.
func (r *WfhRepository) UpdateRequestStatus(ctx context.Context, update models.StatusUpdate) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin update request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var duration models.Duration
	const lock = `SELECT duration FROM wfh_requests WHERE request_id = $1 AND status = 'PENDING' FOR UPDATE`
	if err := tx.GetContext(ctx, &duration, lock, update.RequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("Request %d not found or already processed", update.RequestID))
		}
		return "", fmt.Errorf("lock request %d: %w", update.RequestID, err)
	}

	const updateRequest = `UPDATE wfh_requests SET status = $1, reason_for_rejection = NULLIF($2, '') WHERE request_id = $3`
	if _, err := tx.ExecContext(ctx, updateRequest, update.Status, update.Reason, update.RequestID); err != nil {
		return "", fmt.Errorf("update request %d: %w", update.RequestID, err)
	}

	scheduleStatus := string(update.Status)
	withdrawal := duration == models.DurationWithdrawal
	switch {
	case withdrawal && update.Status == models.RequestStatusApproved:
		scheduleStatus = scheduleStatusWithdrawn
	case withdrawal && update.Status == models.RequestStatusRejected:
		const restore = `UPDATE wfh_schedules
		SET status = 'APPROVED', request_id = withdrawn_from_request_id, withdrawn_from_request_id = NULL
		WHERE request_id = $1`
		res, err := tx.ExecContext(ctx, restore, update.RequestID)
		if err != nil {
			return "", fmt.Errorf("restore withdrawn schedules: %w", err)
		}
		if err := requireRows(res, update.RequestID); err != nil {
			return "", err
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit update request: %w", err)
		}
		return fmt.Sprintf("Successfully updated request %d as %s", update.RequestID, update.Status), nil
	}

	const cascade = `UPDATE wfh_schedules SET status = $1 WHERE request_id = $2`
	res, err := tx.ExecContext(ctx, cascade, scheduleStatus, update.RequestID)
	if err != nil {
		return "", fmt.Errorf("cascade schedules: %w", err)
	}
	if err := requireRows(res, update.RequestID); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit update request: %w", err)
	}
	return fmt.Sprintf("Successfully updated request %d as %s", update.RequestID, scheduleStatus), nil
}

// FetchScheduleSummary returns one labelled row per day that has an approved or pending schedule.
func (r *WfhRepository) FetchScheduleSummary(ctx context.Context, staffID int, start, end models.Date) ([]models.ScheduleDay, error) {
	const query = `SELECT date AS schedule_date,
	string_agg(
		CASE duration WHEN 'FULL_DAY' THEN 'FullDay' WHEN 'HALF_DAY_AM' THEN 'AM' WHEN 'HALF_DAY_PM' THEN 'PM' ELSE '' END
		|| CASE WHEN status = 'PENDING' THEN 'Pending' ELSE '' END,
		'' ORDER BY schedule_id
	) AS label
	FROM wfh_schedules
	WHERE staff_id = $1 AND date BETWEEN $2 AND $3 AND status IN ('APPROVED', 'PENDING')
	GROUP BY date
	ORDER BY date`
	var days []models.ScheduleDay
	if err := r.db.SelectContext(ctx, &days, query, staffID, start, end); err != nil {
		return nil, fmt.Errorf("schedule summary: %w", err)
	}
	return days, nil
}

// SubmitWithdrawal files a withdrawal request for an approved schedule and re-points the schedule at it.
func (r *WfhRepository) SubmitWithdrawal(ctx context.Context, req models.WithdrawalRequest) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin withdrawal: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var schedule struct {
		RequestID int         `db:"request_id"`
		ManagerID int         `db:"manager_id"`
		Date      models.Date `db:"date"`
		Status    string      `db:"status"`
	}
	const lock = `SELECT request_id, manager_id, date, status FROM wfh_schedules
	WHERE schedule_id = $1 AND staff_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &schedule, lock, req.ScheduleID, req.StaffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("Schedule %d not found", req.ScheduleID))
		}
		return "", fmt.Errorf("lock schedule %d: %w", req.ScheduleID, err)
	}
	if schedule.Status != scheduleStatusApproved {
		return "", appErrors.Clone(appErrors.ErrUpstream, "Only approved schedules can be withdrawn")
	}

	const insert = `INSERT INTO wfh_requests
	(staff_id, manager_id, request_date, start_date, duration, status, reason_for_applying)
	VALUES ($1, $2, $3, $4, $5, 'PENDING', $6)
	RETURNING request_id`
	var requestID int
	if err := tx.QueryRowxContext(ctx, insert,
		req.StaffID, schedule.ManagerID, models.DateOf(r.now()), schedule.Date, models.DurationWithdrawal, req.Reason,
	).Scan(&requestID); err != nil {
		return "", fmt.Errorf("insert withdrawal request: %w", err)
	}

	const repoint = `UPDATE wfh_schedules
	SET request_id = $1, withdrawn_from_request_id = $2, status = 'PENDING', reason_for_withdrawing = $3
	WHERE schedule_id = $4`
	if _, err := tx.ExecContext(ctx, repoint, requestID, schedule.RequestID, req.Reason, req.ScheduleID); err != nil {
		return "", fmt.Errorf("repoint schedule %d: %w", req.ScheduleID, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit withdrawal: %w", err)
	}
	return "SUCCESS", nil
}

// FetchStaffRequests lists every request the staff member filed, newest first.
func (r *WfhRepository) FetchStaffRequests(ctx context.Context, staffID int) ([]models.RequestRecord, error) {
	const query = `SELECT request_id, staff_id, manager_id, request_date, start_date, end_date, status, duration,
	reason_for_applying, reason_for_rejection, end_date IS NOT NULL AS is_recurring
	FROM wfh_requests
	WHERE staff_id = $1
	ORDER BY request_date DESC, request_id DESC`
	records := []models.RequestRecord{}
	if err := r.db.SelectContext(ctx, &records, query, staffID); err != nil {
		return nil, fmt.Errorf("list staff requests: %w", err)
	}
	return records, nil
}

// ExpireStaleRequests marks pending requests starting before cutoff as EXPIRED together with their schedules.
func (r *WfhRepository) ExpireStaleRequests(ctx context.Context, cutoff models.Date) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin expire requests: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const expireRequests = `UPDATE wfh_requests SET status = 'EXPIRED'
	WHERE status = 'PENDING' AND start_date < $1
	RETURNING request_id`
	var ids []int64
	if err := tx.SelectContext(ctx, &ids, expireRequests, cutoff); err != nil {
		return "", fmt.Errorf("expire requests: %w", err)
	}
	if len(ids) > 0 {
		const expireSchedules = `UPDATE wfh_schedules SET status = 'EXPIRED' WHERE request_id = ANY($1)`
		if _, err := tx.ExecContext(ctx, expireSchedules, pq.Array(ids)); err != nil {
			return "", fmt.Errorf("expire schedules: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit expire requests: %w", err)
	}
	return fmt.Sprintf("Updated %d request(s) to 'EXPIRED'.", len(ids)), nil
}

// weeklyDates lists start and every seventh day after it up to end inclusive.
func weeklyDates(start models.Date, end *models.Date) []models.Date {
	dates := []models.Date{start}
	if end == nil {
		return dates
	}
	for next := start.AddDays(7); !next.After(*end); next = next.AddDays(7) {
		dates = append(dates, next)
	}
	return dates
}

func requireRows(res sql.Result, requestID int) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("No schedules found for request_id: %d", requestID))
	}
	return nil
}
