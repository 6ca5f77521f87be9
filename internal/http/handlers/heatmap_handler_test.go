package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
)

func seedZoneStatus(t *testing.T, env *testEnv, zone, service, status string, computedAt time.Time) {
	t.Helper()
	zs := domain.ZoneStatus{
		ZoneID:                zone,
		ServiceType:           service,
		ConsensusStatus:       status,
		Confidence:            0.75,
		SupportingReportCount: 3,
		ComputedAt:            computedAt,
	}
	if err := repo.AppendZoneStatus(context.Background(), env.db, &zs); err != nil {
		t.Fatalf("seed zone status: %v", err)
	}
}

func TestGetHeatmap_RequiresValidService(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"", "?service=gas"} {
		w := env.do(t, http.MethodGet, "/status-heatmap"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetHeatmap_ReturnsFeatureCollection(t *testing.T) {
	env := newTestEnv(t)
	seedZoneStatus(t, env, "center", domain.ServiceWater, domain.StatusCutoff, time.Now().UTC())

	w := env.do(t, http.MethodGet, "/status-heatmap?service=water", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("unexpected collection: %+v", fc)
	}
	props := fc.Features[0].Properties
	if props["zone_id"] != "center" || props["status"] != domain.StatusCutoff {
		t.Fatalf("unexpected properties: %v", props)
	}
}

func TestGetHeatmap_BBox(t *testing.T) {
	env := newTestEnv(t)
	seedZoneStatus(t, env, "center", domain.ServiceWater, domain.StatusUnstable, time.Now().UTC())

	// Malformed bbox.
	w := env.do(t, http.MethodGet, "/status-heatmap?service=water&bbox=1,2,3", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short bbox, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/status-heatmap?service=water&bbox=3,3,1,1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty bbox, got %d", w.Code)
	}

	// A bbox far away excludes the zone.
	w = env.do(t, http.MethodGet, "/status-heatmap?service=water&bbox=40.0,40.0,41.0,41.0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fc.Features) != 0 {
		t.Fatalf("expected no features outside the bbox, got %d", len(fc.Features))
	}
}

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("36.2, 33.4, 36.3, 33.5")
	if err != nil {
		t.Fatalf("parseBBox: %v", err)
	}
	want := orb.Bound{Min: orb.Point{36.2, 33.4}, Max: orb.Point{36.3, 33.5}}
	if *b != want {
		t.Fatalf("unexpected bound: %+v", b)
	}

	for _, raw := range []string{"", "1,2,3", "a,b,c,d", "3,3,1,1", "1,1,1,1"} {
		if _, err := parseBBox(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestGetZoneStatus(t *testing.T) {
	env := newTestEnv(t)

	// Service type required.
	w := env.do(t, http.MethodGet, "/zones/center/status", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without service, got %d", w.Code)
	}

	// Unknown zone.
	w = env.do(t, http.MethodGet, "/zones/nowhere/status?service=water", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown zone, got %d", w.Code)
	}

	// Known zone, never computed.
	w = env.do(t, http.MethodGet, "/zones/center/status?service=water", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first recompute, got %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != ErrCodeStatusUnknown {
		t.Fatalf("expected %q, got %q", ErrCodeStatusUnknown, er.Code)
	}

	// After a consensus row lands, the latest one is served.
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedZoneStatus(t, env, "center", domain.ServiceWater, domain.StatusCutoff, base)
	seedZoneStatus(t, env, "center", domain.ServiceWater, domain.StatusAvailable, base.Add(time.Hour))

	w = env.do(t, http.MethodGet, "/zones/center/status?service=water", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ZoneStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status == nil || resp.Status.ConsensusStatus != domain.StatusAvailable {
		t.Fatalf("expected the latest row, got %+v", resp.Status)
	}
}
