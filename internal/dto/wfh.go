package dto

// DraftPatchRequest updates any subset of the application form fields. Omitted fields are left untouched.
type DraftPatchRequest struct {
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	IsRecurring       *bool   `json:"isRecurring"`
	ReasonForApplying *string `json:"reasonForApplying"`
	Duration          *string `json:"duration"`
}

// Empty reports whether the patch carries no field at all.
func (r DraftPatchRequest) Empty() bool {
	return r.StartDate == nil && r.EndDate == nil && r.IsRecurring == nil && r.ReasonForApplying == nil && r.Duration == nil
}

// RejectRequest carries the manager's rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// SelectDateRequest is a date clicked on the calendar.
type SelectDateRequest struct {
	Date string `json:"date" validate:"required"`
}

// CalendarQuery bounds a calendar load; both dates default to the selectable window.
type CalendarQuery struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Format    string `form:"format"`
}

// WithdrawalRequest asks to withdraw one approved WFH day.
type WithdrawalRequest struct {
	ScheduleID int    `json:"schedule_id" validate:"required,gt=0"`
	Date       string `json:"date" validate:"required"`
	Reason     string `json:"reason"`
}

// WithdrawalResponse echoes the confirmation shown to the employee.
type WithdrawalResponse struct {
	Message string `json:"message"`
}

// SelectDateResponse confirms the accepted selection.
type SelectDateResponse struct {
	Date string `json:"date"`
}

// HistoryQuery filters the acting user's request history.
type HistoryQuery struct {
	Status string `form:"status"`
}

// ExpireRequestsResponse reports the outcome of a manual expiry run.
type ExpireRequestsResponse struct {
	Message string `json:"message"`
	Cutoff  string `json:"cutoff"`
}
