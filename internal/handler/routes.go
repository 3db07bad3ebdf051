package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/middleware"
)

// Handlers groups every HTTP handler mounted by the gateway.
type Handlers struct {
	Application *ApplicationHandler
	Review      *ReviewHandler
	Calendar    *CalendarHandler
	Withdrawal  *WithdrawalHandler
	Metrics     *MetricsHandler
	// Optional; their routes are skipped when nil.
	Team         *TeamHandler
	History      *HistoryHandler
	Housekeeping *HousekeepingHandler
}

// RouteDeps are the middleware the protected routes depend on.
type RouteDeps struct {
	Auth        gin.HandlerFunc
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// RegisterRoutes mounts the ops endpoints on r and the WFH API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, deps RouteDeps) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/metrics/summary", h.Metrics.Summary)

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())
	if deps.Auth != nil {
		api.Use(deps.Auth)
	}

	limited := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return handlers
		}
		return append([]gin.HandlerFunc{deps.RateLimiter.Handler()}, handlers...)
	}
	audited := func(action string, handler gin.HandlerFunc) []gin.HandlerFunc {
		return limited(middleware.Audit(deps.Logger, action), handler)
	}

	application := api.Group("/application")
	application.GET("/draft", h.Application.GetDraft)
	application.PATCH("/draft", h.Application.PatchDraft)
	application.DELETE("/draft", h.Application.ResetDraft)
	application.POST("/submit", audited("wfh_request.submit", h.Application.Submit)...)

	reviewer := middleware.RequireReviewer()
	requests := api.Group("/requests", reviewer)
	requests.GET("/pending", h.Review.Pending)
	requests.POST("/:id/approve", h.Review.BeginApprove)
	requests.POST("/:id/reject", h.Review.BeginReject)

	review := api.Group("/review", reviewer)
	review.GET("", h.Review.State)
	review.DELETE("", h.Review.Cancel)
	review.POST("/approve/confirm", audited("wfh_request.approve", h.Review.ConfirmApprove)...)
	review.POST("/reject", audited("wfh_request.reject", h.Review.Reject)...)

	calendar := api.Group("/calendar")
	calendar.GET("", h.Calendar.Get)
	calendar.POST("/select", h.Calendar.Select)
	calendar.GET("/export", limited(h.Calendar.Export)...)

	api.POST("/withdrawals", audited("wfh_schedule.withdraw", h.Withdrawal.Create)...)

	if h.History != nil {
		application.GET("/history", h.History.List)
	}
	if h.Team != nil {
		team := api.Group("/team")
		team.GET("/calendar", limited(h.Team.Summary)...)
		team.GET("/calendar/:date", h.Team.Detail)
	}
	if h.Housekeeping != nil {
		admin := api.Group("/admin", middleware.RequireHR())
		admin.POST("/expire-requests", audited("wfh_request.expire", h.Housekeeping.ExpireRequests)...)
	}
}
