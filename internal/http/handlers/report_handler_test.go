package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/config"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/geo"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/services"
)

const handlerZonesFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"id": "center", "name": "Center"},
      "geometry": {"type": "Polygon", "coordinates": [[
        [36.22, 33.42], [36.28, 33.42], [36.28, 33.46], [36.22, 33.46], [36.22, 33.42]
      ]]}
    }
  ]
}`

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Report{}, &domain.ZoneStatus{}, &domain.Project{}, &domain.InfraPoint{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection([]byte(handlerZonesFixture))
	if err != nil {
		t.Fatalf("parse zones: %v", err)
	}
	zones, err := geo.NewIndex(fc)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	ingest := &services.IngestService{
		DB:    db,
		Zones: zones,
		Bounds: config.BoundsConfig{
			MinLat: 33.40, MaxLat: 33.50, MinLng: 36.20, MaxLng: 36.32,
		},
		MaxDescriptionRunes: 2000,
	}
	heatmap := &services.HeatmapService{DB: db, Zones: zones}
	h := New(ingest, heatmap)

	r := gin.New()
	r.POST("/reports", h.PostReport)
	r.GET("/reports", h.ListReports)
	r.GET("/status-heatmap", h.GetHeatmap)
	r.GET("/zones/:id/status", h.GetZoneStatus)
	r.GET("/projects", h.ListProjects)
	r.POST("/projects/:id/votes", h.PostProjectVote)

	return &testEnv{db: db, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPostReport_CreatesAndReplays(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]any{
		"client_id":    "c-1",
		"category":     "service-status",
		"service_type": "water",
		"status":       "cutoff",
		"latitude":     33.44,
		"longitude":    36.25,
		"description":  "no water since morning",
	}

	w := env.do(t, http.MethodPost, "/reports", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var first PostReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.Created || first.Report == nil || first.Report.ID == "" {
		t.Fatalf("unexpected first response: %+v", first)
	}
	if first.Report.ZoneID == nil || *first.Report.ZoneID != "center" {
		t.Fatalf("zone not resolved: %+v", first.Report)
	}

	// Replay with the same client_id: same row, Created=false.
	w = env.do(t, http.MethodPost, "/reports", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("replay expected 200, got %d", w.Code)
	}
	var second PostReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if second.Created {
		t.Fatalf("replay must not report created")
	}
	if second.Report.ID != first.Report.ID {
		t.Fatalf("replay returned a different row: %s vs %s", second.Report.ID, first.Report.ID)
	}
}

func TestPostReport_BindingError(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/reports", map[string]any{"category": "outage"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("unexpected code %q", er.Code)
	}
}

func TestPostReport_ValidationAndGeofence(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name     string
		payload  map[string]any
		wantCode string
	}{
		{
			"bad category",
			map[string]any{"client_id": "v1", "category": "potholes", "description": "d"},
			ErrCodeValidationFailed,
		},
		{
			"service-status missing status",
			map[string]any{"client_id": "v2", "category": "service-status", "service_type": "water", "description": "d"},
			ErrCodeValidationFailed,
		},
		{
			"outside municipality",
			map[string]any{"client_id": "v3", "category": "outage", "description": "d", "latitude": 35.1, "longitude": 36.25},
			ErrCodeGeofenceRejected,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/reports", tc.payload)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if er.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, er.Code)
			}
		})
	}
}

func TestListReports_PaginationAndFilters(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 25; i++ {
		w := env.do(t, http.MethodPost, "/reports", map[string]any{
			"client_id":   fmt.Sprintf("r-%02d", i),
			"category":    "waste",
			"description": "d",
			"latitude":    33.44,
			"longitude":   36.25,
			"created_at":  time.Date(2026, 3, 1, 0, i, 0, 0, time.UTC).Format(time.RFC3339),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("seed %d: %d %s", i, w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/reports?page=2&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListReportsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Total != 25 || resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
	if len(resp.Reports) != 10 {
		t.Fatalf("expected 10 items, got %d", len(resp.Reports))
	}
	// Newest first: page 2 starts at the 11th newest, r-14.
	if resp.Reports[0].ClientID != "r-14" {
		t.Fatalf("unexpected first item on page 2: %s", resp.Reports[0].ClientID)
	}

	// Category filter excludes everything.
	w = env.do(t, http.MethodGet, "/reports?category=danger", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp = ListReportsResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Total != 0 {
		t.Fatalf("expected empty result for danger, got %d", resp.Pagination.Total)
	}

	// Unknown category is a 400, not an empty result.
	w = env.do(t, http.MethodGet, "/reports?category=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", w.Code)
	}
}
