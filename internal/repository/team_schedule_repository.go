package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfh-scheduler/internal/models"
)

// TeamScheduleRepository aggregates approved schedules across a reporting line.
// A zero manager id selects every staff member.
type TeamScheduleRepository struct {
	db *sqlx.DB
}

// NewTeamScheduleRepository constructs the repository.
func NewTeamScheduleRepository(db *sqlx.DB) *TeamScheduleRepository {
	return &TeamScheduleRepository{db: db}
}

// FetchTeamScheduleSummary counts WFH staff per half day for every date in [start, end].
// A team with no members yields no dates.
func (r *TeamScheduleRepository) FetchTeamScheduleSummary(ctx context.Context, managerID int, start, end models.Date) ([]models.TeamDay, error) {
	const query = `WITH team AS (
		SELECT staff_id FROM staff WHERE $1 = 0 OR reporting_manager = $1
	), days AS (
		SELECT d::date AS date FROM generate_series($2::date, $3::date, interval '1 day') AS d
	)
	SELECT days.date,
		(SELECT COUNT(*) FROM team) AS total_staff,
		COUNT(DISTINCT s.staff_id) FILTER (WHERE s.duration IN ('FULL_DAY', 'HALF_DAY_AM')) AS wfh_count_am,
		COUNT(DISTINCT s.staff_id) FILTER (WHERE s.duration IN ('FULL_DAY', 'HALF_DAY_PM')) AS wfh_count_pm
	FROM days
	LEFT JOIN wfh_schedules s
		ON s.date = days.date AND s.status = 'APPROVED' AND s.staff_id IN (SELECT staff_id FROM team)
	GROUP BY days.date
	ORDER BY days.date`
	var days []models.TeamDay
	if err := r.db.SelectContext(ctx, &days, query, managerID, start, end); err != nil {
		return nil, fmt.Errorf("team schedule summary: %w", err)
	}
	if len(days) == 0 || days[0].TotalStaff == 0 {
		return []models.TeamDay{}, nil
	}
	for i := range days {
		days[i].FillOfficeCounts()
	}
	return days, nil
}

// FetchTeamScheduleDetail reports each team member's AM and PM location on date.
func (r *TeamScheduleRepository) FetchTeamScheduleDetail(ctx context.Context, managerID int, date models.Date) (*models.TeamDayDetail, error) {
	const query = `SELECT st.staff_id,
		COALESCE(st.staff_fname, '') AS staff_fname,
		COALESCE(st.staff_lname, '') AS staff_lname,
		COALESCE(st.position, '') AS position,
		COALESCE(bool_or(s.duration IN ('FULL_DAY', 'HALF_DAY_AM')), false) AS wfh_am,
		COALESCE(bool_or(s.duration IN ('FULL_DAY', 'HALF_DAY_PM')), false) AS wfh_pm
	FROM staff st
	LEFT JOIN wfh_schedules s ON s.staff_id = st.staff_id AND s.date = $2 AND s.status = 'APPROVED'
	WHERE $1 = 0 OR st.reporting_manager = $1
	GROUP BY st.staff_id, st.staff_fname, st.staff_lname, st.position
	ORDER BY st.staff_id`
	var rows []struct {
		StaffID   int    `db:"staff_id"`
		FirstName string `db:"staff_fname"`
		LastName  string `db:"staff_lname"`
		Position  string `db:"position"`
		WFHAM     bool   `db:"wfh_am"`
		WFHPM     bool   `db:"wfh_pm"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, managerID, date); err != nil {
		return nil, fmt.Errorf("team schedule detail: %w", err)
	}

	detail := &models.TeamDayDetail{Date: date, Staff: make([]models.TeamMemberStatus, 0, len(rows))}
	for _, row := range rows {
		profile := models.StaffProfile{FirstName: row.FirstName, LastName: row.LastName}
		detail.Staff = append(detail.Staff, models.TeamMemberStatus{
			StaffID:  row.StaffID,
			Name:     profile.FullName(),
			Position: row.Position,
			StatusAM: location(row.WFHAM),
			StatusPM: location(row.WFHPM),
		})
	}
	return detail, nil
}

func location(wfh bool) models.WorkLocation {
	if wfh {
		return models.LocationWFH
	}
	return models.LocationOffice
}
