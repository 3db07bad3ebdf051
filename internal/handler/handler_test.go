package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/middleware"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

var (
	employee = models.ActingUser{StaffID: 140002, ManagerID: 140894, Department: "Sales", Position: "Account Manager", Role: models.RoleStaff, FirstName: "Susan", LastName: "Goh"}
	manager  = models.ActingUser{StaffID: 140894, ManagerID: 140001, Department: "Sales", Position: "Sales Manager", Role: models.RoleManager, FirstName: "Rahim", LastName: "Khalid"}
	hr       = models.ActingUser{StaffID: 160008, ManagerID: 130002, Department: "HR", Position: "HR Team", Role: models.RoleHR, FirstName: "Sally", LastName: "Loh"}
)

func testClock() time.Time {
	return time.Date(2024, time.October, 30, 10, 0, 0, 0, time.UTC)
}

// fakeBackend answers every collaborator call from canned data.
type fakeBackend struct {
	mu          sync.Mutex
	submitErr   error
	updateErr   error
	pending     []models.PendingRequest
	days        []models.ScheduleDay
	scheduleErr error
	chunkCalls  int
	submitted   []models.WfhRequest
	updates     []models.StatusUpdate
	withdrawals []models.WithdrawalRequest
	history     []models.RequestRecord
	team        []models.TeamDay
	teamScopes  []int
	expired     []models.Date
}

func (f *fakeBackend) SubmitRequest(_ context.Context, req models.WfhRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return "Request created successfully with 1 schedule(s)", nil
}

func (f *fakeBackend) FetchPendingRequests(context.Context, int) ([]models.PendingRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PendingRequest(nil), f.pending...), nil
}

func (f *fakeBackend) FetchStaffProfile(_ context.Context, staffID int) (*models.StaffProfile, error) {
	return &models.StaffProfile{StaffID: staffID, FirstName: "Staff", LastName: "Member"}, nil
}

func (f *fakeBackend) UpdateRequestStatus(_ context.Context, update models.StatusUpdate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return "", f.updateErr
	}
	f.updates = append(f.updates, update)
	return "ok", nil
}

func (f *fakeBackend) FetchScheduleSummary(_ context.Context, _ int, start, end models.Date) ([]models.ScheduleDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkCalls++
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	var out []models.ScheduleDay
	for _, day := range f.days {
		if !day.Date.Before(start) && !day.Date.After(end) {
			out = append(out, day)
		}
	}
	return out, nil
}

func (f *fakeBackend) SubmitWithdrawal(_ context.Context, req models.WithdrawalRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawals = append(f.withdrawals, req)
	return "SUCCESS", nil
}

func (f *fakeBackend) FetchStaffRequests(context.Context, int) ([]models.RequestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RequestRecord{}, f.history...), nil
}

func (f *fakeBackend) ExpireStaleRequests(_ context.Context, cutoff models.Date) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, cutoff)
	return "Updated 1 request(s) to 'EXPIRED'.", nil
}

func (f *fakeBackend) FetchTeamScheduleSummary(_ context.Context, managerID int, start, end models.Date) ([]models.TeamDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teamScopes = append(f.teamScopes, managerID)
	var out []models.TeamDay
	for _, day := range f.team {
		if !day.Date.Before(start) && !day.Date.After(end) {
			out = append(out, day)
		}
	}
	return out, nil
}

func (f *fakeBackend) FetchTeamScheduleDetail(_ context.Context, managerID int, date models.Date) (*models.TeamDayDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teamScopes = append(f.teamScopes, managerID)
	return &models.TeamDayDetail{Date: date, Staff: []models.TeamMemberStatus{
		{StaffID: 140002, Name: "Susan Goh", Position: "Account Manager", StatusAM: models.LocationWFH, StatusPM: models.LocationOffice},
	}}, nil
}

var _ service.Store = (*fakeBackend)(nil)

func newTestRules() *service.DateRuleService {
	return service.NewDateRuleService(service.DateWindow{}, service.WithDateRuleClock(testClock))
}

func newTestRegistry(backend *fakeBackend) *service.WorkspaceRegistry {
	return service.NewWorkspaceRegistry(service.WorkspaceDeps{
		Backend:  backend,
		Rules:    newTestRules(),
		Calendar: service.AggregatorConfig{ChunkDays: 31, MaxParallel: 2},
	})
}

func newTestContext(method, target string, body interface{}, actor *models.ActingUser) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	var reader *bytes.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = bytes.NewReader([]byte(v))
		default:
			raw, _ := json.Marshal(v)
			reader = bytes.NewReader(raw)
		}
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if actor != nil {
		c.Set(middleware.ContextActorKey, *actor)
	}
	return c, w
}

type envelope struct {
	Data     json.RawMessage  `json:"data"`
	Error    *appErrors.Error `json:"error"`
	Warnings []string         `json:"warnings"`
	Meta     map[string]any   `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
