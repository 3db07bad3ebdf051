package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/dto"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
)

func newCalendarHandler(backend *fakeBackend) *CalendarHandler {
	return NewCalendarHandler(newTestRegistry(backend), newTestRules(), service.NewCalendarExportService(nil, nil, nil))
}

func TestCalendarHandlerLoadsRange(t *testing.T) {
	backend := &fakeBackend{days: []models.ScheduleDay{
		{Date: models.NewDate(2024, time.October, 30), Label: models.LabelFullDay},
		{Date: models.NewDate(2024, time.November, 4), Label: models.LabelAMPending},
	}}
	h := newCalendarHandler(backend)

	c, w := newTestContext(http.MethodGet, "/calendar?start_date=2024-10-01&end_date=2024-11-30", nil, &employee)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.CalendarView
	env := decode(t, w, &view)
	require.Len(t, view.Events, 2)
	assert.Equal(t, "WFH (Full Day)", view.Events[0].Title)
	assert.True(t, view.Events[1].IsPending)
	assert.Equal(t, "2024-10-01", view.Range.Start.String())
	assert.Empty(t, env.Warnings)
}

func TestCalendarHandlerDefaultsToSelectableWindow(t *testing.T) {
	h := newCalendarHandler(&fakeBackend{})

	c, w := newTestContext(http.MethodGet, "/calendar", nil, &employee)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.CalendarView
	decode(t, w, &view)
	assert.Equal(t, "2024-08-30", view.Range.Start.String())
	assert.Equal(t, "2025-01-30", view.Range.End.String())
}

func TestCalendarHandlerRejectsBadRange(t *testing.T) {
	h := newCalendarHandler(&fakeBackend{})

	c, w := newTestContext(http.MethodGet, "/calendar?start_date=2024-11-30&end_date=2024-11-01", nil, &employee)
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/calendar?start_date=30-11-2024", nil, &employee)
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarHandlerClampsWideRangeToWindow(t *testing.T) {
	backend := &fakeBackend{days: []models.ScheduleDay{
		{Date: models.NewDate(1950, time.January, 2), Label: models.LabelFullDay},
		{Date: models.NewDate(2024, time.October, 30), Label: models.LabelFullDay},
	}}
	h := newCalendarHandler(backend)

	c, w := newTestContext(http.MethodGet, "/calendar?start_date=1900-01-01&end_date=2999-12-31", nil, &employee)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.CalendarView
	decode(t, w, &view)
	assert.Equal(t, "2024-08-30", view.Range.Start.String())
	assert.Equal(t, "2025-01-30", view.Range.End.String())
	require.Len(t, view.Events, 1)
	assert.Equal(t, 5, backend.chunkCalls)
}

func TestCalendarHandlerRejectsRangeOutsideWindow(t *testing.T) {
	backend := &fakeBackend{}
	h := newCalendarHandler(backend)

	c, w := newTestContext(http.MethodGet, "/calendar/export?start_date=1900-01-01&end_date=1900-12-31", nil, &employee)
	h.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "OUT_OF_RANGE", env.Error.Code)
	assert.Zero(t, backend.chunkCalls)
}

func TestCalendarHandlerAllChunksFailed(t *testing.T) {
	h := newCalendarHandler(&fakeBackend{scheduleErr: errors.New("connection refused")})

	c, w := newTestContext(http.MethodGet, "/calendar?start_date=2024-10-01&end_date=2024-10-31", nil, &employee)
	h.Get(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCalendarHandlerSelect(t *testing.T) {
	h := newCalendarHandler(&fakeBackend{})

	c, w := newTestContext(http.MethodPost, "/calendar/select", dto.SelectDateRequest{Date: "2024-11-15"}, &employee)
	h.Select(c)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.SelectDateResponse
	decode(t, w, &resp)
	assert.Equal(t, "2024-11-15", resp.Date)

	c, w = newTestContext(http.MethodPost, "/calendar/select", dto.SelectDateRequest{Date: "2025-03-01"}, &employee)
	h.Select(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "You cannot select a date more than three months ahead.", env.Error.Message)
}

func TestCalendarHandlerExport(t *testing.T) {
	backend := &fakeBackend{days: []models.ScheduleDay{{Date: models.NewDate(2024, time.October, 30), Label: models.LabelPM}}}
	h := newCalendarHandler(backend)

	c, w := newTestContext(http.MethodGet, "/calendar/export?start_date=2024-10-01&end_date=2024-10-31&format=ics", nil, &employee)
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "wfh-140002-2024-10-01-2024-10-31.ics")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")

	c, w = newTestContext(http.MethodGet, "/calendar/export?format=xlsx", nil, &employee)
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
