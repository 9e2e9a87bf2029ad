package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"troubledesk/internal/infrastructure/cache"
	"troubledesk/internal/infrastructure/export"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "troubledesk/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "troubledesk/internal/infrastructure/persistence/sqlite/uow"
	"troubledesk/internal/ports"
	"troubledesk/internal/usecase/incident"
	"troubledesk/internal/usecase/parameter"
)

const (
	roleSystemAdmin   = "1"
	roleGeneralOffice = "3"
	roleThreePL       = "4"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "api.sqlite")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(model.All()...))

	uow := sqliteuow.NewUnitOfWork(db)
	memory := cache.NewMemoryCache(128, time.Hour)
	params := parameter.NewService(sqliterepo.NewParameterRepository(db), uow, memory, time.Minute)
	incidents := incident.NewService(
		sqliterepo.NewIncidentRepository(db),
		uow,
		memory,
		params,
		[]ports.IncidentExporter{export.NewCSVExporter(time.UTC), export.NewXLSXExporter(time.UTC)},
		incident.Options{MaxFileBytes: 1024},
	)
	return NewRouter(incidents, params, time.UTC)
}

type call struct {
	method string
	path   string
	role   string
	body   any
}

func do(t *testing.T, router http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.role != "" {
		req.Header.Set(HeaderUserID, "10"+c.role)
		req.Header.Set(HeaderRoleID, c.role)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func phase1Body() map[string]any {
	return map[string]any{
		"organization_id":            1,
		"occurrence_at":              "2025-03-09T15:30:00Z",
		"occurrence_location":        "Dock 3",
		"shipping_warehouse_id":      2,
		"shipping_company_id":        3,
		"trouble_category_id":        4,
		"trouble_detail_category_id": 5,
		"details":                    "carton crushed",
		"quantity":                   2,
	}
}

func createIncident(t *testing.T, router http.Handler) int64 {
	t.Helper()
	rec := do(t, router, call{method: http.MethodPost, path: "/api/incidents", role: roleGeneralOffice, body: phase1Body()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[detailResponse](t, rec).ID
}

func TestHealthAndRequestID(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestIncidentPhasesOverHTTP(t *testing.T) {
	router := setupRouter(t)
	id := createIncident(t, router)
	path := fmt.Sprintf("/api/incidents/%d", id)

	rec := do(t, router, call{method: http.MethodGet, path: path, role: roleGeneralOffice})
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[detailResponse](t, rec)
	assert.Equal(t, "SecondInfoInvestigation", detail.Status)
	assert.Equal(t, time.Now().UTC().Format(dateLayout), detail.CreationDate)
	assert.True(t, detail.Permissions["phase1.update"])
	assert.False(t, detail.Permissions["phase2.create"])
	require.NotNil(t, detail.Quantity)
	assert.Equal(t, 2, *detail.Quantity)

	rec = do(t, router, call{method: http.MethodPost, path: path + "/second", role: roleThreePL, body: map[string]any{
		"process_description": "re-packed",
		"cause":               "forklift",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ThirdInfoInvestigation", decodeBody[detailResponse](t, rec).Status)

	rec = do(t, router, call{method: http.MethodPost, path: path + "/second", role: roleThreePL, body: map[string]any{
		"process_description": "again",
		"cause":               "again",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, call{method: http.MethodPut, path: path + "/first", role: roleGeneralOffice, body: phase1Body()})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody[errorResponse](t, rec).Code)

	rec = do(t, router, call{method: http.MethodPatch, path: path, role: roleSystemAdmin, body: map[string]any{
		"details": "mixed",
		"cause":   "mixed",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, call{method: http.MethodPost, path: path + "/third", role: roleThreePL, body: map[string]any{
		"input_date":                     time.Now().UTC().Format(dateLayout),
		"recurrence_prevention_measures": "driver training",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	completed := decodeBody[detailResponse](t, rec)
	assert.Equal(t, "Completed", completed.Status)
	assert.Nil(t, completed.NextDeadline)
	assert.Len(t, completed.Events, 3)
}

func TestErrorResponses(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, call{method: http.MethodGet, path: "/api/incidents/999", role: roleSystemAdmin})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeBody[errorResponse](t, rec).RequestID)

	rec = do(t, router, call{method: http.MethodGet, path: "/api/incidents/abc", role: roleSystemAdmin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, call{method: http.MethodGet, path: "/api/incidents", role: "99"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, call{method: http.MethodPost, path: "/api/incidents", body: phase1Body()})
	assert.Equal(t, http.StatusForbidden, rec.Code, "missing role must not create incidents")

	rec = do(t, router, call{method: http.MethodPost, path: "/api/incidents", role: roleGeneralOffice, body: map[string]any{"unknown": 1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, call{method: http.MethodGet, path: "/api/incidents?status=Closed", role: roleSystemAdmin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDeleteAndDashboard(t *testing.T) {
	router := setupRouter(t)
	first := createIncident(t, router)
	createIncident(t, router)

	rec := do(t, router, call{method: http.MethodGet, path: "/api/incidents?status=SecondInfoInvestigation&page_size=1", role: roleThreePL})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[listResponse](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Items, 1)

	rec = do(t, router, call{method: http.MethodDelete, path: fmt.Sprintf("/api/incidents/%d", first), role: roleThreePL})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, router, call{method: http.MethodDelete, path: fmt.Sprintf("/api/incidents/%d", first), role: roleSystemAdmin})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, call{method: http.MethodGet, path: "/api/dashboard?months=3", role: roleSystemAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[dashboardResponse](t, rec)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.ByStatus["SecondInfoInvestigation"])
	assert.Len(t, summary.Monthly, 3)
}

func TestFilesOverHTTP(t *testing.T) {
	router := setupRouter(t)
	id := createIncident(t, router)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("info_level", "1"))
	part, err := form.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("damage report"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/incidents/%d/files", id), &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set(HeaderUserID, "3")
	req.Header.Set(HeaderRoleID, roleGeneralOffice)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	file := decodeBody[fileResponse](t, rec)
	assert.Equal(t, int64(13), file.FileSize)

	rec = do(t, router, call{method: http.MethodGet, path: fmt.Sprintf("/api/incidents/%d/files?level=1", id), role: roleThreePL})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"file_name":"note.txt"`)

	rec = do(t, router, call{method: http.MethodGet, path: fmt.Sprintf("/api/files/%d", file.ID), role: roleThreePL})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "damage report", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "note.txt")

	rec = do(t, router, call{method: http.MethodDelete, path: fmt.Sprintf("/api/files/%d", file.ID), role: roleGeneralOffice})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, call{method: http.MethodGet, path: fmt.Sprintf("/api/files/%d", file.ID), role: roleThreePL})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportOverHTTP(t *testing.T) {
	router := setupRouter(t)
	createIncident(t, router)

	rec := do(t, router, call{method: http.MethodGet, path: "/api/export?format=csv", role: roleSystemAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ID,Status")

	rec = do(t, router, call{method: http.MethodGet, path: "/api/export?format=xlsx", role: roleSystemAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = do(t, router, call{method: http.MethodGet, path: "/api/export?format=pdf", role: roleSystemAdmin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParametersOverHTTP(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, call{method: http.MethodPut, path: "/api/parameters/secondInfoDeadlineDays", role: roleThreePL, body: map[string]any{"value": "3", "type": "int"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, call{method: http.MethodPut, path: "/api/parameters/secondInfoDeadlineDays", role: roleSystemAdmin, body: map[string]any{"value": "x", "type": "int"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, call{method: http.MethodPut, path: "/api/parameters/secondInfoDeadlineDays", role: roleSystemAdmin, body: map[string]any{"value": "3", "type": "int"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decodeBody[parameterResponse](t, rec)
	assert.Equal(t, "int", saved.Type)
	assert.True(t, saved.Active)

	rec = do(t, router, call{method: http.MethodGet, path: "/api/parameters", role: roleThreePL})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"secondInfoDeadlineDays"`)

	// The new deadline applies to the next read.
	id := createIncident(t, router)
	rec = do(t, router, call{method: http.MethodGet, path: fmt.Sprintf("/api/incidents/%d", id), role: roleThreePL})
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[detailResponse](t, rec)
	require.NotNil(t, detail.NextDeadline)
	today, _ := time.Parse(dateLayout, detail.CreationDate)
	assert.True(t, detail.NextDeadline.Equal(today.AddDate(0, 0, 3)), "next deadline %s", detail.NextDeadline)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter(t)
	do(t, router, call{method: http.MethodGet, path: "/healthz"})

	rec := do(t, router, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "td_http_requests_total")
}

func TestDashboardStream(t *testing.T) {
	router := setupRouter(t)
	createIncident(t, router)

	rec := do(t, router, call{method: http.MethodGet, path: "/api/dashboard/stream?interval=0", role: roleSystemAdmin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	header := http.Header{}
	header.Set(HeaderUserID, "101")
	header.Set(HeaderRoleID, roleSystemAdmin)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/dashboard/stream?interval=1&months=2"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var summary dashboardResponse
		require.NoError(t, conn.ReadJSON(&summary))
		assert.Equal(t, 1, summary.Total)
		assert.Len(t, summary.Monthly, 2)
	}

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}
