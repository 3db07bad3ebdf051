package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, opts...)
}

func TestSubmitRequestPostsPayload(t *testing.T) {
	var received map[string]interface{}
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/request", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"WFH request and schedules created successfully","request_id":4}`))
	})

	message, err := client.SubmitRequest(context.Background(), models.WfhRequest{
		StaffID: 140002, ManagerID: 140894, Department: "Sales", Position: "Account Manager",
		ReasonForApplying: "Childcare", StartDate: models.NewDate(2024, time.November, 4), Duration: models.DurationFullDay,
	})
	require.NoError(t, err)
	assert.Equal(t, "WFH request and schedules created successfully", message)
	assert.Equal(t, "2024-11-04", received["date"])
	assert.Nil(t, received["end_date"])
	assert.Equal(t, "FULL_DAY", received["duration"])
}

func TestClientSurfacesBackendMessage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Cannot approve request due to policy violation on date(s) 2024-11-04"}`))
	})

	_, err := client.UpdateRequestStatus(context.Background(), models.StatusUpdate{RequestID: 3, Status: models.RequestStatusApproved})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Equal(t, "Cannot approve request due to policy violation on date(s) 2024-11-04", appErrors.UpstreamMessage(err))
}

func TestUpdateRequestStatusAcceptsBareString(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "REJECTED", body["request_status"])
		assert.Equal(t, "Team offsite", body["reason"])
		_, _ = w.Write([]byte(`"Successfully updated request 3 as REJECTED"`))
	})

	message, err := client.UpdateRequestStatus(context.Background(), models.StatusUpdate{RequestID: 3, Status: models.RequestStatusRejected, Reason: "Team offsite"})
	require.NoError(t, err)
	assert.Equal(t, "Successfully updated request 3 as REJECTED", message)
}

func TestFetchScheduleSummaryQuery(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/personal-schedule/140002", r.URL.Path)
		assert.Equal(t, "2024-10-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-10-31", r.URL.Query().Get("end_date"))
		_, _ = w.Write([]byte(`{"dates":[{"date":"2024-10-30","schedule":"AMPending"},{"date":"2024-10-31","schedule":""}]}`))
	})

	days, err := client.FetchScheduleSummary(context.Background(), 140002, models.NewDate(2024, time.October, 1), models.NewDate(2024, time.October, 31))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, models.LabelAMPending, days[0].Label)
	assert.Equal(t, "2024-10-31", days[1].Date.String())
	assert.Empty(t, days[1].Label)
}

func TestFetchPendingAndProfile(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/pending-requests/140894":
			_, _ = w.Write([]byte(`[{"request_id":7,"staff_id":140002,"manager_id":140894,"request_date":"2024-10-28","start_date":"2024-10-31","end_date":null,"reason_for_applying":"Plumber","is_recurring":false}]`))
		case "/api/staff/140002":
			_, _ = w.Write([]byte(`{"staff_id":140002,"staff_fname":"Susan","staff_lname":"Goh","dept":"Sales","position":"Account Manager","reporting_manager":140894}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	pending, err := client.FetchPendingRequests(context.Background(), 140894)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 7, pending[0].RequestID)
	assert.Nil(t, pending[0].EndDate)

	profile, err := client.FetchStaffProfile(context.Background(), 140002)
	require.NoError(t, err)
	assert.Equal(t, "Susan Goh", profile.FullName())

	_, err = client.FetchStaffProfile(context.Background(), 1)
	assert.Equal(t, "backend returned 404", appErrors.UpstreamMessage(err))
}

func TestSubmitWithdrawalAndObserver(t *testing.T) {
	var routes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/create-withdraw-request", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"SUCCESS"}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second, WithObserver(func(method, route string, status int, _ time.Duration) {
		routes = append(routes, method+" "+route)
		assert.Equal(t, http.StatusOK, status)
	}))

	message, err := client.SubmitWithdrawal(context.Background(), models.WithdrawalRequest{ScheduleID: 55, StaffID: 140002, ManagerID: 140894, Reason: "Client visit"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", message)
	assert.Equal(t, []string{"POST /api/create-withdraw-request"}, routes)
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewClient(base, 200*time.Millisecond)
	_, err := client.FetchPendingRequests(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Empty(t, appErrors.UpstreamMessage(err))
	assert.Error(t, client.Ping(context.Background()))
}

func TestClientRejectsOversizedResponse(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dates":[`))
		for i := 0; i < 1000; i++ {
			_, _ = w.Write([]byte(`{"date":"2024-11-04","schedule":"FullDay"},`))
		}
		_, _ = w.Write([]byte(`{"date":"2024-11-05","schedule":"AM"}]}`))
	}, WithMaxResponseBytes(1024))

	_, err := client.FetchScheduleSummary(context.Background(), 140002, models.NewDate(2024, time.November, 1), models.NewDate(2024, time.November, 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Contains(t, appErrors.UpstreamMessage(err), "exceeds 1024 bytes")

	exact := `{"message":"ok"}`
	client = newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(exact))
	}, WithMaxResponseBytes(int64(len(exact))))
	message, err := client.SubmitWithdrawal(context.Background(), models.WithdrawalRequest{ScheduleID: 1, StaffID: 2, ManagerID: 3, Reason: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", message)
}

func TestFetchStaffRequests(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/staff-requests/140002", r.URL.Path)
		_, _ = w.Write([]byte(`{"staff_requests":[{"request_id":12,"staff_id":140002,"manager_id":140894,"request_date":"2024-10-28",
			"start_date":"2024-11-04","end_date":null,"status":"REJECTED","reason_for_applying":"Childcare",
			"reason_for_rejection":"Team offsite","is_recurring":false}]}`))
	})

	records, err := client.FetchStaffRequests(context.Background(), 140002)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.RequestStatusRejected, records[0].Status)
	assert.Nil(t, records[0].EndDate)
	require.NotNil(t, records[0].ReasonForRejection)
	assert.Equal(t, "Team offsite", *records[0].ReasonForRejection)
}

func TestExpireStaleRequests(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reject-expired-request", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"Updated requests to 'EXPIRED'."}`))
	})

	message, err := client.ExpireStaleRequests(context.Background(), models.NewDate(2024, time.August, 31))
	require.NoError(t, err)
	assert.Equal(t, "Updated requests to 'EXPIRED'.", message)
}

func TestFetchTeamScheduleRoutesByScope(t *testing.T) {
	var paths []string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case r.URL.Query().Get("start_date") != "":
			assert.Equal(t, "2024-11-30", r.URL.Query().Get("end_date"))
			_, _ = w.Write([]byte(`{"dates":[{"date":"2024-11-04","total_staff":4,"wfh_count_am":1,"wfh_count_pm":2,"office_count_am":3,"office_count_pm":2}]}`))
		default:
			_, _ = w.Write([]byte(`{"date":"2024-11-04","staff":[{"staff_id":140002,"name":"Susan Goh","position":"Account Manager","status_am":"WFH","status_pm":"OFFICE"}]}`))
		}
	})
	ctx := context.Background()
	start, end := models.NewDate(2024, time.November, 1), models.NewDate(2024, time.November, 30)

	days, err := client.FetchTeamScheduleSummary(ctx, 140894, start, end)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 2, days[0].OfficeCountPM)

	_, err = client.FetchTeamScheduleSummary(ctx, 0, start, end)
	require.NoError(t, err)

	detail, err := client.FetchTeamScheduleDetail(ctx, 140894, models.NewDate(2024, time.November, 4))
	require.NoError(t, err)
	require.Len(t, detail.Staff, 1)
	assert.Equal(t, models.LocationWFH, detail.Staff[0].StatusAM)

	_, err = client.FetchTeamScheduleDetail(ctx, 0, models.NewDate(2024, time.November, 4))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/manager-schedule-summary/140894",
		"/api/hr-schedule-summary",
		"/api/manager-schedule-detail/140894/2024-11-04",
		"/api/hr-schedule-detail/2024-11-04",
	}, paths)
}
