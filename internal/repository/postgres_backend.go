package repository

import "github.com/jmoiron/sqlx"

// PostgresBackend serves every collaborator straight from the backend schema.
type PostgresBackend struct {
	*WfhRepository
	*StaffRepository
	*TeamScheduleRepository
}

// NewPostgresBackend wires the repositories over one connection pool.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{
		WfhRepository:          NewWfhRepository(db),
		StaffRepository:        NewStaffRepository(db),
		TeamScheduleRepository: NewTeamScheduleRepository(db),
	}
}
