package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"qualis/internal/issue/models"
	"qualis/internal/issue/service"
	"qualis/internal/outbox"
	"qualis/internal/platform/events"
	"qualis/internal/platform/metrics"
	"qualis/internal/platform/middleware"
	processservice "qualis/internal/process/service"
	"qualis/internal/records"
	"qualis/internal/sequence"
	"qualis/pkg/domain"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus()
	m := metrics.NewWith(prometheus.NewRegistry())
	store := records.NewInMemory()
	ob := outbox.New(store, logger, m, bus, time.Millisecond, 3)
	counter := sequence.NewMemory()
	processes := processservice.New(store, ob, counter, logger, m, bus, false)
	svc := service.New(store, ob, counter, processes, logger, m, bus)

	r := chi.NewRouter()
	r.Use(middleware.Tenant())
	New(svc, logger).Register(r)
	return r
}

func createIssue(t *testing.T, router http.Handler, body string) models.ContextIssue {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/issues", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var issue models.ContextIssue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issue))
	return issue
}

func TestCreateGradedThreatIssue(t *testing.T) {
	router := newTestRouter(t)

	issue := createIssue(t, router, `{
		"quadrant": "threat",
		"description": "Single supplier dependency",
		"severity": 3,
		"probability": 3
	}`)

	require.Equal(t, models.TypeRisk, issue.Type)
	require.Len(t, issue.RiskVersions, 1)
	require.NotNil(t, issue.Criticity)
	require.Equal(t, domain.Criticity(9), *issue.Criticity)
	require.Equal(t, domain.PriorityHigh, issue.Priority)
	require.True(t, strings.HasPrefix(issue.Code, "RISK/"))
}

func TestCreateIssueRequiresDescription(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/issues", strings.NewReader(`{"quadrant":"threat"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddRiskVersionEndpoint(t *testing.T) {
	router := newTestRouter(t)
	issue := createIssue(t, router, `{
		"quadrant": "weakness",
		"description": "Training gap",
		"severity": 2,
		"probability": 3
	}`)

	body := `{"description":"After training plan","severity":1,"probability":2}`
	req := httptest.NewRequest(http.MethodPost, "/issues/"+issue.ID.String()+"/risk-versions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var updated models.ContextIssue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.RiskVersions, 2)
	require.Equal(t, "After training plan", updated.Description)
	require.Equal(t, domain.PriorityLow, updated.Priority)

	// Latest endpoint returns the appended version.
	req = httptest.NewRequest(http.MethodGet, "/issues/"+issue.ID.String()+"/risk-versions/latest", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var latest models.RiskVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Equal(t, 2, latest.VersionNumber)
	require.Equal(t, models.TriggerResidual, latest.Trigger)
}

func TestRiskHistoryEndpoint(t *testing.T) {
	router := newTestRouter(t)
	issue := createIssue(t, router, `{
		"quadrant": "threat",
		"description": "Graded",
		"severity": 2,
		"probability": 2
	}`)

	req := httptest.NewRequest(http.MethodGet, "/issues/"+issue.ID.String()+"/risk-versions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.RiskVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
}

func TestRiskVersionNotFoundIssue(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/issues/missing/risk-versions/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFilterByProcess(t *testing.T) {
	router := newTestRouter(t)
	createIssue(t, router, `{"quadrant":"opportunity","description":"Unlinked"}`)

	req := httptest.NewRequest(http.MethodGet, "/issues?processId=p-none", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var issues []models.ContextIssue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issues))
	require.Empty(t, issues)
}
