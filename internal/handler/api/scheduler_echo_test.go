package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlert/internal/domain/models"
	domrepo "FinAlert/internal/domain/repository"
)

type stubScheduler struct {
	status    models.SchedulerStatus
	started   int
	stopped   int
	triggered int
	reset     int
	restarted int
	evalErr   error
}

func (s *stubScheduler) Start(context.Context)                   { s.started++; s.status.IsRunning = true }
func (s *stubScheduler) Stop()                                   { s.stopped++; s.status.IsRunning = false }
func (s *stubScheduler) Restart(context.Context)                 { s.restarted++; s.status.IsRunning = true }
func (s *stubScheduler) Trigger()                                { s.triggered++ }
func (s *stubScheduler) PerformEvaluation(context.Context) error { return s.evalErr }
func (s *stubScheduler) GetStatus() models.SchedulerStatus       { return s.status }
func (s *stubScheduler) ResetStats()                             { s.reset++ }

type stubAlerts struct {
	filter domrepo.AlertFilter
	rows   []models.GeneratedAlert
	err    error
}

func (s *stubAlerts) ListRecent(_ context.Context, f domrepo.AlertFilter) ([]models.GeneratedAlert, error) {
	s.filter = f
	return s.rows, s.err
}

func newTestServer(sched *stubScheduler, alerts *stubAlerts) *echo.Echo {
	e := echo.New()
	NewSchedulerEchoHandler(nil, sched, alerts).RegisterRoutes(e)
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSchedulerStartStop(t *testing.T) {
	sched := &stubScheduler{}
	e := newTestServer(sched, &stubAlerts{})

	rec := serve(e, http.MethodPost, "/api/scheduler/start")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sched.started)
	assert.Contains(t, rec.Body.String(), `"is_running":true`)

	rec = serve(e, http.MethodPost, "/api/scheduler/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sched.stopped)
	assert.Contains(t, rec.Body.String(), `"is_running":false`)
}

func TestSchedulerCollect(t *testing.T) {
	sched := &stubScheduler{}
	e := newTestServer(sched, &stubAlerts{})

	rec := serve(e, http.MethodPost, "/api/scheduler/collect")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, sched.triggered)

	sched.status.CollectionInProgress = true
	rec = serve(e, http.MethodPost, "/api/scheduler/collect")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, sched.triggered)
}

func TestSchedulerRestart(t *testing.T) {
	sched := &stubScheduler{}
	rec := serve(newTestServer(sched, &stubAlerts{}), http.MethodPost, "/api/scheduler/restart")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sched.restarted)
	assert.Contains(t, rec.Body.String(), `"is_running":true`)
}

func TestSchedulerResetAndStatus(t *testing.T) {
	sched := &stubScheduler{status: models.SchedulerStatus{Stats: models.CollectionStats{TotalRuns: 7}}}
	e := newTestServer(sched, &stubAlerts{})

	rec := serve(e, http.MethodGet, "/api/scheduler/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.SchedulerStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(7), body.Data.Stats.TotalRuns)

	serve(e, http.MethodPost, "/api/scheduler/reset")
	assert.Equal(t, 1, sched.reset)
}

func TestListAlertsDefaultsAndFilters(t *testing.T) {
	alerts := &stubAlerts{rows: []models.GeneratedAlert{{ID: "a", Symbol: "BTC", Level: models.LevelHigh}}}
	e := newTestServer(&stubScheduler{}, alerts)

	rec := serve(e, http.MethodGet, "/api/alerts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, alerts.filter.Limit)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = serve(e, http.MethodGet, "/api/alerts?symbol=ETH&level=medium&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domrepo.AlertFilter{Symbol: "ETH", Level: models.LevelMedium, Limit: 5}, alerts.filter)
}

func TestListAlertsRejectsBadQuery(t *testing.T) {
	e := newTestServer(&stubScheduler{}, &stubAlerts{})

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/api/alerts?level=critical").Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/api/alerts?limit=501").Code)
}

func TestListAlertsStoreFailure(t *testing.T) {
	e := newTestServer(&stubScheduler{}, &stubAlerts{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/api/alerts").Code)
}

func TestEvaluate(t *testing.T) {
	sched := &stubScheduler{status: models.SchedulerStatus{AlertScheduler: models.AlertSchedulerStatus{AlertsCreated: 2}}}
	rec := serve(newTestServer(sched, &stubAlerts{}), http.MethodPost, "/api/alerts/evaluate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alerts_created":2`)

	sched.evalErr = errors.New("clickhouse down")
	rec = serve(newTestServer(sched, &stubAlerts{}), http.MethodPost, "/api/alerts/evaluate")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
