package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"FinAlert/internal/domain/models"
	domrepo "FinAlert/internal/domain/repository"
	xhttp "FinAlert/pkg/http"
	xlogger "FinAlert/pkg/logger"
)

// SchedulerControl is the part of usecase.Scheduler exposed over HTTP.
type SchedulerControl interface {
	Start(ctx context.Context)
	Stop()
	Restart(ctx context.Context)
	Trigger()
	PerformEvaluation(ctx context.Context) error
	GetStatus() models.SchedulerStatus
	ResetStats()
}

// AlertLister reads persisted alerts.
type AlertLister interface {
	ListRecent(ctx context.Context, filter domrepo.AlertFilter) ([]models.GeneratedAlert, error)
}

// SchedulerEchoHandler is the host control surface for the pipeline.
type SchedulerEchoHandler struct {
	logger *xlogger.Logger
	sched  SchedulerControl
	alerts AlertLister
}

func NewSchedulerEchoHandler(logger *xlogger.Logger, sched SchedulerControl, alerts AlertLister) *SchedulerEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SchedulerEchoHandler{logger: logger, sched: sched, alerts: alerts}
}

func (h *SchedulerEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)

	s := g.Group("/scheduler")
	s.GET("/status", h.Status)
	s.POST("/start", h.Start)
	s.POST("/stop", h.Stop)
	s.POST("/restart", h.Restart)
	s.POST("/reset", h.Reset)
	s.POST("/collect", h.Collect)

	g.GET("/alerts", h.ListAlerts)
	g.POST("/alerts/evaluate", h.Evaluate)
}

func (h *SchedulerEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]bool{"scheduler_running": h.sched.GetStatus().IsRunning})
}

func (h *SchedulerEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.sched.GetStatus())
}

// Start and Restart hand the request context to the scheduler; cycles run detached from it.
func (h *SchedulerEchoHandler) Start(c echo.Context) error {
	h.sched.Start(c.Request().Context())
	return xhttp.SuccessResponse(c, h.sched.GetStatus())
}

func (h *SchedulerEchoHandler) Stop(c echo.Context) error {
	h.sched.Stop()
	return xhttp.SuccessResponse(c, h.sched.GetStatus())
}

func (h *SchedulerEchoHandler) Restart(c echo.Context) error {
	h.sched.Restart(c.Request().Context())
	return xhttp.SuccessResponse(c, h.sched.GetStatus())
}

func (h *SchedulerEchoHandler) Reset(c echo.Context) error {
	h.sched.ResetStats()
	return xhttp.SuccessResponse(c, h.sched.GetStatus())
}

// Collect submits a manual collection. A cycle already in flight is reported as a conflict.
func (h *SchedulerEchoHandler) Collect(c echo.Context) error {
	if h.sched.GetStatus().CollectionInProgress {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("collection already in progress"))
	}
	h.sched.Trigger()
	return xhttp.AcceptedResponse(c, models.TriggerResponse{Submitted: true, Message: "collection submitted"})
}

func (h *SchedulerEchoHandler) Evaluate(c echo.Context) error {
	if err := h.sched.PerformEvaluation(c.Request().Context()); err != nil {
		h.logger.Error("manual evaluation failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("evaluation failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, h.sched.GetStatus().AlertScheduler)
}

func (h *SchedulerEchoHandler) ListAlerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.alerts.ListRecent(c.Request().Context(), domrepo.AlertFilter{
		Symbol: req.Symbol,
		Level:  models.AlertLevel(req.Level),
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("list alerts failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
