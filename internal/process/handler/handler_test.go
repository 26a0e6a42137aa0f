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

	"qualis/internal/outbox"
	"qualis/internal/platform/events"
	"qualis/internal/platform/metrics"
	"qualis/internal/platform/middleware"
	"qualis/internal/process/models"
	"qualis/internal/process/service"
	"qualis/internal/records"
	"qualis/internal/sequence"
)

func newTestRouter(t *testing.T, seedDemo bool) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus()
	m := metrics.NewWith(prometheus.NewRegistry())
	store := records.NewInMemory()
	ob := outbox.New(store, logger, m, bus, time.Millisecond, 3)
	svc := service.New(store, ob, sequence.NewMemory(), logger, m, bus, seedDemo)

	r := chi.NewRouter()
	r.Use(middleware.Tenant())
	New(svc, logger).Register(r)
	return r
}

func TestCreateProcess(t *testing.T) {
	router := newTestRouter(t, false)

	body := `{"name":"Purchasing","type":"support"}`
	req := httptest.NewRequest(http.MethodPost, "/processes", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var p models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "PRO-001", p.Code)
	require.Equal(t, models.StatusDraft, p.Status)
	require.NotEmpty(t, p.Activities)
	require.True(t, p.Activities[0].IsGovernance())
}

func TestCreateProcessRejectsMissingName(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/processes", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bad_request", resp["error"])
}

func TestGetProcessNotFound(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/processes/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSeededActiveProcesses(t *testing.T) {
	router := newTestRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/processes?status=active", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var procs []models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &procs))
	require.Len(t, procs, 4)
	for _, p := range procs {
		require.Equal(t, models.StatusActive, p.Status)
	}
}

func TestUpdateProcessBumpsRevision(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/processes", strings.NewReader(`{"name":"HR"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	patch := `{"name":"Human Resources","revisionNote":"Renamed"}`
	req = httptest.NewRequest(http.MethodPatch, "/processes/"+created.ID.String(), strings.NewReader(patch))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Human Resources", updated.Name)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, "Renamed", updated.RevisionNote)
}

func TestArchiveProcess(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/processes", strings.NewReader(`{"name":"Legacy"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var created models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/processes/"+created.ID.String()+"/archive", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var archived models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archived))
	require.Equal(t, models.StatusArchived, archived.Status)
	require.Equal(t, "Process archived", archived.RevisionNote)
}

func TestTenantHeaderScopesCollections(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/processes", strings.NewReader(`{"name":"Shared"}`))
	req.Header.Set(middleware.TenantHeader, "acme")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The default tenant does not see acme's process.
	req = httptest.NewRequest(http.MethodGet, "/processes", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var procs []models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &procs))
	require.Empty(t, procs)
}
