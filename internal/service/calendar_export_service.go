package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
	"github.com/noah-isme/wfh-scheduler/pkg/export"
)

// ExportFormat selects the calendar export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatICS ExportFormat = "ics"
)

var calendarEventNamespace = uuid.MustParse("6f1c2a4e-8d0b-4f7e-9a51-3c2d7be0a913")

// ExportedFile is a rendered export ready to stream.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// CalendarExportService renders a calendar view as CSV, PDF or iCalendar.
type CalendarExportService struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
	ics *export.ICSExporter
}

// NewCalendarExportService wires the exporters.
func NewCalendarExportService(csv *export.CSVExporter, pdf *export.PDFExporter, ics *export.ICSExporter) *CalendarExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter()
	}
	return &CalendarExportService{csv: csv, pdf: pdf, ics: ics}
}

// ParseExportFormat validates a format query value; empty means CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	case ExportFormatICS:
		return ExportFormatICS, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, ics")
}

// Export renders view for owner in the requested format.
func (s *CalendarExportService) Export(format ExportFormat, owner models.ActingUser, view CalendarView) (*ExportedFile, error) {
	base := fmt.Sprintf("wfh-%d-%s-%s", owner.StaffID, view.Range.Start, view.Range.End)
	title := "WFH schedule"
	if name := strings.TrimSpace(owner.FirstName + " " + owner.LastName); name != "" {
		title += " - " + name
	}

	switch format {
	case ExportFormatCSV, ExportFormatPDF:
		data := calendarDataset(title, view)
		if format == ExportFormatCSV {
			body, err := s.csv.Render(data)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
			}
			return &ExportedFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
		}
		body, err := s.pdf.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportedFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	case ExportFormatICS:
		entries := make([]export.Entry, 0, len(view.Events))
		for _, event := range view.Events {
			entries = append(entries, export.Entry{
				UID:         eventUID(owner.StaffID, event.Date),
				Date:        event.Date.Time(),
				Summary:     event.Title,
				Description: pendingText(event.IsPending),
			})
		}
		body, err := s.ics.Render(title, entries)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
		}
		return &ExportedFile{Filename: base + ".ics", ContentType: "text/calendar", Body: body}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}

func calendarDataset(title string, view CalendarView) export.Dataset {
	data := export.Dataset{
		Title:   title,
		Headers: []string{"date", "weekday", "title", "status"},
	}
	for _, event := range view.Events {
		data.Rows = append(data.Rows, map[string]string{
			"date":    event.Date.String(),
			"weekday": event.Date.Weekday().String(),
			"title":   event.Title,
			"status":  pendingText(event.IsPending),
		})
		data.RowColors = append(data.RowColors, event.BackgroundColor)
	}
	return data
}

// eventUID is stable per staff member and day so re-imports update instead of duplicating.
func eventUID(staffID int, date models.Date) string {
	return uuid.NewSHA1(calendarEventNamespace, []byte(strconv.Itoa(staffID)+"/"+date.String())).String() + "@wfh-scheduler"
}

func pendingText(pending bool) string {
	if pending {
		return "Pending approval"
	}
	return "Approved"
}
