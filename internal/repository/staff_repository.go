package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// StaffRepository reads the staff directory.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FetchStaffProfile loads one staff member.
func (r *StaffRepository) FetchStaffProfile(ctx context.Context, staffID int) (*models.StaffProfile, error) {
	const query = `SELECT staff_id, COALESCE(staff_fname, '') AS staff_fname, COALESCE(staff_lname, '') AS staff_lname,
	COALESCE(dept, '') AS dept, COALESCE(position, '') AS position, reporting_manager
	FROM staff WHERE staff_id = $1`
	var profile models.StaffProfile
	if err := r.db.GetContext(ctx, &profile, query, staffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("Staff %d not found", staffID))
		}
		return nil, fmt.Errorf("get staff %d: %w", staffID, err)
	}
	return &profile, nil
}
