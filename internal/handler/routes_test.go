package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/wfh-scheduler/internal/middleware"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	"github.com/noah-isme/wfh-scheduler/pkg/jobs"
)

func newTestRouter(actor models.ActingUser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	backend := &fakeBackend{pending: []models.PendingRequest{pendingRequest(7)}}
	registry := newTestRegistry(backend)
	rules := newTestRules()

	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{
		Application: NewApplicationHandler(registry),
		Review:      NewReviewHandler(registry),
		Calendar:    NewCalendarHandler(registry, rules, service.NewCalendarExportService(nil, nil, nil)),
		Withdrawal:  NewWithdrawalHandler(service.NewWithdrawalService(rules, backend, nil, 0, nil, nil), nil),
		Metrics:     NewMetricsHandler(service.NewMetricsService(), nil),
		Team:        NewTeamHandler(service.NewTeamScheduleService(rules, backend, service.AggregatorConfig{}, nil, nil)),
		History:     NewHistoryHandler(service.NewRequestHistoryService(backend, nil)),
		Housekeeping: NewHousekeepingHandler(
			service.NewHousekeepingService(jobs.NewQueue("housekeeping", jobs.QueueConfig{}), registry, nil, backend, nil), 60),
	}, RouteDeps{
		Auth: func(c *gin.Context) {
			c.Set(middleware.ContextActorKey, actor)
			c.Next()
		},
		RateLimiter: middleware.NewRateLimiter(100, 10),
	})
	return r
}

func TestRoutesGuardReviewEndpoints(t *testing.T) {
	for _, tc := range []struct {
		actor models.ActingUser
		want  int
	}{
		{employee, http.StatusForbidden},
		{manager, http.StatusOK},
	} {
		r := newTestRouter(tc.actor)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/requests/pending", nil))
		assert.Equal(t, tc.want, w.Code, tc.actor.Role)
	}
}

func TestRoutesServeOpsAndApplication(t *testing.T) {
	r := newTestRouter(employee)

	for _, path := range []string{"/health", "/ready", "/metrics", "/api/v1/application/draft", "/api/v1/calendar"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/application/draft", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRoutesServeTeamHistoryAndAdmin(t *testing.T) {
	r := newTestRouter(employee)
	for _, path := range []string{"/api/v1/team/calendar", "/api/v1/team/calendar/2024-11-04", "/api/v1/application/history"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	for _, tc := range []struct {
		actor models.ActingUser
		want  int
	}{
		{employee, http.StatusForbidden},
		{manager, http.StatusForbidden},
		{hr, http.StatusOK},
	} {
		w := httptest.NewRecorder()
		newTestRouter(tc.actor).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/expire-requests", nil))
		assert.Equal(t, tc.want, w.Code, tc.actor.Role)
	}
}
