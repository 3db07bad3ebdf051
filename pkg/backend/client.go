package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// DefaultMaxResponseBytes caps how much of a backend response body is read.
const DefaultMaxResponseBytes int64 = 4 << 20

// Observer receives one call per backend round trip.
type Observer func(method, route string, status int, duration time.Duration)

// Client talks to the REST backend that owns WFH storage.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
	maxBody  int64
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver reports each call, typically to Prometheus.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient builds a client rooted at baseURL, e.g. http://localhost:5000.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
		maxBody: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageBody struct {
	Message string `json:"message"`
}

// SubmitRequest posts a new WFH request.
func (c *Client) SubmitRequest(ctx context.Context, req models.WfhRequest) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/request", "/api/request", req)
	if err != nil {
		return "", err
	}
	return decodeMessage(raw), nil
}

// FetchPendingRequests lists the manager's pending requests.
func (c *Client) FetchPendingRequests(ctx context.Context, managerID int) ([]models.PendingRequest, error) {
	path := "/api/pending-requests/" + strconv.Itoa(managerID)
	raw, err := c.do(ctx, http.MethodGet, path, "/api/pending-requests/:manager_id", nil)
	if err != nil {
		return nil, err
	}
	var pending []models.PendingRequest
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("decode pending requests: %w", err)
	}
	return pending, nil
}

// FetchStaffProfile loads one staff member.
func (c *Client) FetchStaffProfile(ctx context.Context, staffID int) (*models.StaffProfile, error) {
	path := "/api/staff/" + strconv.Itoa(staffID)
	raw, err := c.do(ctx, http.MethodGet, path, "/api/staff/:staff_id", nil)
	if err != nil {
		return nil, err
	}
	var profile models.StaffProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode staff profile: %w", err)
	}
	if profile.StaffID == 0 {
		profile.StaffID = staffID
	}
	return &profile, nil
}

// UpdateRequestStatus records a manager decision.
func (c *Client) UpdateRequestStatus(ctx context.Context, update models.StatusUpdate) (string, error) {
	raw, err := c.do(ctx, http.MethodPatch, "/api/update-request", "/api/update-request", update)
	if err != nil {
		return "", err
	}
	return decodeMessage(raw), nil
}

// FetchScheduleSummary loads the labelled personal schedule for [start, end].
func (c *Client) FetchScheduleSummary(ctx context.Context, staffID int, start, end models.Date) ([]models.ScheduleDay, error) {
	query := url.Values{}
	query.Set("start_date", start.String())
	query.Set("end_date", end.String())
	path := "/api/personal-schedule/" + strconv.Itoa(staffID) + "?" + query.Encode()

	raw, err := c.do(ctx, http.MethodGet, path, "/api/personal-schedule/:staff_id", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Dates []models.ScheduleDay `json:"dates"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode personal schedule: %w", err)
	}
	return body.Dates, nil
}

// SubmitWithdrawal asks the backend to withdraw an approved schedule.
func (c *Client) SubmitWithdrawal(ctx context.Context, req models.WithdrawalRequest) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/create-withdraw-request", "/api/create-withdraw-request", req)
	if err != nil {
		return "", err
	}
	return decodeMessage(raw), nil
}

// FetchStaffRequests lists every request the staff member filed.
func (c *Client) FetchStaffRequests(ctx context.Context, staffID int) ([]models.RequestRecord, error) {
	path := "/api/staff-requests/" + strconv.Itoa(staffID)
	raw, err := c.do(ctx, http.MethodGet, path, "/api/staff-requests/:staff_id", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Requests []models.RequestRecord `json:"staff_requests"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode staff requests: %w", err)
	}
	if body.Requests == nil {
		body.Requests = []models.RequestRecord{}
	}
	return body.Requests, nil
}

// ExpireStaleRequests asks the backend to expire old pending requests.
// The REST backend applies its own 60 day cutoff, so cutoff is only logged.
func (c *Client) ExpireStaleRequests(ctx context.Context, cutoff models.Date) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/reject-expired-request", "/api/reject-expired-request", nil)
	if err != nil {
		return "", err
	}
	c.logger.Debug("backend expired stale requests", zap.String("cutoff", cutoff.String()))
	return decodeMessage(raw), nil
}

// FetchTeamScheduleSummary loads per-day WFH counts for a manager's team, or the whole company when managerID is zero.
func (c *Client) FetchTeamScheduleSummary(ctx context.Context, managerID int, start, end models.Date) ([]models.TeamDay, error) {
	query := url.Values{}
	query.Set("start_date", start.String())
	query.Set("end_date", end.String())
	path, route := "/api/hr-schedule-summary", "/api/hr-schedule-summary"
	if managerID != 0 {
		path, route = "/api/manager-schedule-summary/"+strconv.Itoa(managerID), "/api/manager-schedule-summary/:manager_id"
	}

	raw, err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), route, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Dates []models.TeamDay `json:"dates"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode team schedule summary: %w", err)
	}
	if body.Dates == nil {
		body.Dates = []models.TeamDay{}
	}
	return body.Dates, nil
}

// FetchTeamScheduleDetail loads where each team member works on date.
func (c *Client) FetchTeamScheduleDetail(ctx context.Context, managerID int, date models.Date) (*models.TeamDayDetail, error) {
	path, route := "/api/hr-schedule-detail/"+date.String(), "/api/hr-schedule-detail/:date"
	if managerID != 0 {
		path = "/api/manager-schedule-detail/" + strconv.Itoa(managerID) + "/" + date.String()
		route = "/api/manager-schedule-detail/:manager_id/:date"
	}

	raw, err := c.do(ctx, http.MethodGet, path, route, nil)
	if err != nil {
		return nil, err
	}
	var detail models.TeamDayDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode team schedule detail: %w", err)
	}
	if detail.Date.IsZero() {
		detail.Date = date
	}
	if detail.Staff == nil {
		detail.Staff = []models.TeamMemberStatus{}
	}
	return &detail, nil
}

// Ping reports whether the backend answers at all; any non-5xx status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("backend returned %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, route string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", route, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := http.StatusServiceUnavailable
	if resp != nil {
		status = resp.StatusCode
	}
	duration := time.Since(start)
	if c.observer != nil {
		c.observer(method, route, status, duration)
	}
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("method", method), zap.String("route", route), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", route, err)
	}
	if int64(len(raw)) > c.maxBody {
		c.logger.Warn("backend response too large", zap.String("route", route), zap.Int64("limit", c.maxBody))
		return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("backend response exceeds %d bytes", c.maxBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := decodeMessage(raw)
		c.logger.Info("backend rejected call",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		if message == "" {
			message = fmt.Sprintf("backend returned %d", resp.StatusCode)
		}
		return nil, appErrors.Clone(appErrors.ErrUpstream, message)
	}

	c.logger.Debug("backend call", zap.String("method", method), zap.String("route", route), zap.Duration("duration", duration))
	return raw, nil
}

// decodeMessage accepts {"message": "..."} or a bare JSON string.
func decodeMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var body messageBody
	if err := json.Unmarshal(trimmed, &body); err == nil {
		return body.Message
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	return ""
}
