package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsProductID = "-//wfh-scheduler//calendar export//EN"

// Entry is a single all-day calendar item.
type Entry struct {
	UID         string
	Date        time.Time
	Summary     string
	Description string
}

// ICSExporter renders entries as an iCalendar (RFC 5545) feed.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

// Render serialises the entries as all-day VEVENTs.
func (e *ICSExporter) Render(name string, entries []Entry) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := e.now().UTC()
	for _, entry := range entries {
		if entry.UID == "" {
			return nil, fmt.Errorf("ics entry for %s has no uid", entry.Date.Format("2006-01-02"))
		}
		day := time.Date(entry.Date.Year(), entry.Date.Month(), entry.Date.Day(), 0, 0, 0, 0, time.UTC)
		event := cal.AddEvent(entry.UID)
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		event.SetSummary(entry.Summary)
		if entry.Description != "" {
			event.SetDescription(entry.Description)
		}
	}

	return []byte(cal.Serialize()), nil
}
