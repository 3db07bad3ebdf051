package models

import "strings"

// Duration is the part of the day a WFH request covers.
type Duration string

const (
	DurationFullDay   Duration = "FULL_DAY"
	DurationHalfDayAM Duration = "HALF_DAY_AM"
	DurationHalfDayPM Duration = "HALF_DAY_PM"
	// DurationWithdrawal marks a request asking to cancel an approved schedule.
	DurationWithdrawal Duration = "WITHDRAWAL REQUEST"
)

// ParseDuration accepts one of the selectable request durations.
func ParseDuration(raw string) (Duration, bool) {
	switch Duration(strings.ToUpper(strings.TrimSpace(raw))) {
	case DurationFullDay:
		return DurationFullDay, true
	case DurationHalfDayAM:
		return DurationHalfDayAM, true
	case DurationHalfDayPM:
		return DurationHalfDayPM, true
	}
	return "", false
}

// RequestStatus mirrors the backend request lifecycle.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusWithdrawn RequestStatus = "WITHDRAWN"
	// RequestStatusExpired marks a request nobody decided on before its start date aged out.
	RequestStatusExpired RequestStatus = "EXPIRED"
)

// ParseRequestStatus accepts any lifecycle status, case-insensitively.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	status := RequestStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusWithdrawn, RequestStatusExpired:
		return status, true
	}
	return "", false
}

// WfhRequest is the payload sent to the backend when an employee applies.
type WfhRequest struct {
	StaffID           int      `json:"staff_id" validate:"required,gt=0"`
	ManagerID         int      `json:"manager_id" validate:"required,gt=0"`
	Department        string   `json:"dept" validate:"required"`
	Position          string   `json:"position" validate:"required"`
	ReasonForApplying string   `json:"reason_for_applying" validate:"required"`
	StartDate         Date     `json:"date"`
	IsRecurring       bool     `json:"is_recurring"`
	EndDate           *Date    `json:"end_date"`
	Duration          Duration `json:"duration" validate:"required,oneof=FULL_DAY HALF_DAY_AM HALF_DAY_PM"`
}

// PendingRequest is a request awaiting a manager decision.
type PendingRequest struct {
	RequestID         int      `db:"request_id" json:"request_id"`
	StaffID           int      `db:"staff_id" json:"staff_id"`
	ManagerID         int      `db:"manager_id" json:"manager_id"`
	RequestDate       Date     `db:"request_date" json:"request_date"`
	StartDate         Date     `db:"start_date" json:"start_date"`
	EndDate           *Date    `db:"end_date" json:"end_date"`
	ReasonForApplying string   `db:"reason_for_applying" json:"reason_for_applying"`
	Duration          Duration `db:"duration" json:"duration"`
	IsRecurring       bool     `db:"is_recurring" json:"is_recurring"`
}

// StatusUpdate resolves a pending request.
type StatusUpdate struct {
	RequestID int           `json:"request_id"`
	Status    RequestStatus `json:"request_status"`
	Reason    string        `json:"reason"`
}

// ScheduleLabel classifies a single day on a personal schedule.
type ScheduleLabel string

const (
	LabelFullDay        ScheduleLabel = "FullDay"
	LabelAM             ScheduleLabel = "AM"
	LabelPM             ScheduleLabel = "PM"
	LabelFullDayPending ScheduleLabel = "FullDayPending"
	LabelAMPending      ScheduleLabel = "AMPending"
	LabelPMPending      ScheduleLabel = "PMPending"
)

// ScheduleDay is one row of the personal schedule summary. An empty label means office day.
type ScheduleDay struct {
	Date  Date          `db:"schedule_date" json:"date"`
	Label ScheduleLabel `db:"label" json:"schedule"`
}

// CalendarEvent is a rendered calendar entry.
type CalendarEvent struct {
	Date            Date   `json:"date"`
	Title           string `json:"title"`
	BackgroundColor string `json:"backgroundColor"`
	IsPending       bool   `json:"isPending"`
}

// StaffProfile carries the fields used to label requests with a requester.
type StaffProfile struct {
	StaffID          int    `db:"staff_id" json:"staff_id"`
	FirstName        string `db:"staff_fname" json:"staff_fname"`
	LastName         string `db:"staff_lname" json:"staff_lname"`
	Department       string `db:"dept" json:"dept"`
	Position         string `db:"position" json:"position"`
	ReportingManager *int   `db:"reporting_manager" json:"reporting_manager"`
}

// FullName joins first and last name.
func (p StaffProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// WithdrawalRequest asks to cancel an approved WFH day.
type WithdrawalRequest struct {
	ScheduleID   int    `json:"schedule_id" validate:"required,gt=0"`
	StaffID      int    `json:"staff_id" validate:"required,gt=0"`
	ManagerID    int    `json:"manager_id" validate:"required,gt=0"`
	ScheduleDate Date   `json:"date"`
	Reason       string `json:"reason" validate:"required"`
}

// RequestRecord is one entry of a staff member's request history.
type RequestRecord struct {
	RequestID          int           `db:"request_id" json:"request_id"`
	StaffID            int           `db:"staff_id" json:"staff_id"`
	ManagerID          int           `db:"manager_id" json:"manager_id"`
	RequestDate        Date          `db:"request_date" json:"request_date"`
	StartDate          Date          `db:"start_date" json:"start_date"`
	EndDate            *Date         `db:"end_date" json:"end_date"`
	Status             RequestStatus `db:"status" json:"status"`
	Duration           Duration      `db:"duration" json:"duration,omitempty"`
	ReasonForApplying  string        `db:"reason_for_applying" json:"reason_for_applying"`
	ReasonForRejection *string       `db:"reason_for_rejection" json:"reason_for_rejection"`
	IsRecurring        bool          `db:"is_recurring" json:"is_recurring"`
}

// WorkLocation is where a staff member works for half a day.
type WorkLocation string

const (
	LocationOffice WorkLocation = "OFFICE"
	LocationWFH    WorkLocation = "WFH"
)

// TeamDay counts who works from home on one date across a team.
type TeamDay struct {
	Date          Date `db:"date" json:"date"`
	TotalStaff    int  `db:"total_staff" json:"total_staff"`
	WFHCountAM    int  `db:"wfh_count_am" json:"wfh_count_am"`
	WFHCountPM    int  `db:"wfh_count_pm" json:"wfh_count_pm"`
	OfficeCountAM int  `db:"-" json:"office_count_am"`
	OfficeCountPM int  `db:"-" json:"office_count_pm"`
}

// FillOfficeCounts derives the office headcount from the WFH counts.
func (d *TeamDay) FillOfficeCounts() {
	d.OfficeCountAM = max(d.TotalStaff-d.WFHCountAM, 0)
	d.OfficeCountPM = max(d.TotalStaff-d.WFHCountPM, 0)
}

// TeamMemberStatus is one staff member's location on a given date.
type TeamMemberStatus struct {
	StaffID  int          `json:"staff_id"`
	Name     string       `json:"name"`
	Position string       `json:"position"`
	StatusAM WorkLocation `json:"status_am"`
	StatusPM WorkLocation `json:"status_pm"`
}

// TeamDayDetail lists where every team member works on one date.
type TeamDayDetail struct {
	Date  Date               `json:"date"`
	Staff []TeamMemberStatus `json:"staff"`
}
