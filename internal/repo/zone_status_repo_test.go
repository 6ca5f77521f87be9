package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
)

func TestAppendZoneStatus_AssignsIDAndPersists(t *testing.T) {
	db := newTestDB(t, &domain.ZoneStatus{})

	zs := &domain.ZoneStatus{
		ZoneID:                "z1",
		ServiceType:           domain.ServiceWater,
		ConsensusStatus:       domain.StatusCutoff,
		Confidence:            0.8,
		SupportingReportCount: 4,
		ComputedAt:            time.Now().UTC(),
	}
	if err := AppendZoneStatus(context.Background(), db, zs); err != nil {
		t.Fatalf("AppendZoneStatus: %v", err)
	}
	if zs.ID == "" {
		t.Fatalf("expected generated ID")
	}

	var got domain.ZoneStatus
	if err := db.First(&got, "id = ?", zs.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ConsensusStatus != domain.StatusCutoff || got.SupportingReportCount != 4 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestLatestZoneStatus_NotFoundAndLatestWins(t *testing.T) {
	db := newTestDB(t, &domain.ZoneStatus{})
	ctx := context.Background()

	if _, err := LatestZoneStatus(ctx, db, "z1", domain.ServiceWater); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []domain.ZoneStatus{
		{ZoneID: "z1", ServiceType: domain.ServiceWater, ConsensusStatus: domain.StatusAvailable, ComputedAt: base},
		{ZoneID: "z1", ServiceType: domain.ServiceWater, ConsensusStatus: domain.StatusCutoff, ComputedAt: base.Add(time.Hour)},
		{ZoneID: "z1", ServiceType: domain.ServiceElectricity, ConsensusStatus: domain.StatusUnstable, ComputedAt: base.Add(2 * time.Hour)},
	}
	for i := range rows {
		if err := AppendZoneStatus(ctx, db, &rows[i]); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	got, err := LatestZoneStatus(ctx, db, "z1", domain.ServiceWater)
	if err != nil {
		t.Fatalf("LatestZoneStatus: %v", err)
	}
	if got.ConsensusStatus != domain.StatusCutoff {
		t.Fatalf("expected the newer row, got %+v", got)
	}
}

func TestLatestZoneStatuses_NewestPerZone(t *testing.T) {
	db := newTestDB(t, &domain.ZoneStatus{})
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := []domain.ZoneStatus{
		{ZoneID: "z1", ServiceType: domain.ServiceWater, ConsensusStatus: domain.StatusAvailable, ComputedAt: base},
		{ZoneID: "z1", ServiceType: domain.ServiceWater, ConsensusStatus: domain.StatusUnstable, ComputedAt: base.Add(30 * time.Minute)},
		{ZoneID: "z2", ServiceType: domain.ServiceWater, ConsensusStatus: domain.StatusCutoff, ComputedAt: base},
		// A different service must not leak into the water view.
		{ZoneID: "z2", ServiceType: domain.ServiceElectricity, ConsensusStatus: domain.StatusAvailable, ComputedAt: base.Add(time.Hour)},
	}
	for i := range rows {
		if err := AppendZoneStatus(ctx, db, &rows[i]); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	got, err := LatestZoneStatuses(ctx, db, domain.ServiceWater)
	if err != nil {
		t.Fatalf("LatestZoneStatuses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows (one per zone), got %d: %+v", len(got), got)
	}
	// Ordered by zone_id ascending.
	if got[0].ZoneID != "z1" || got[0].ConsensusStatus != domain.StatusUnstable {
		t.Fatalf("z1 should carry its newest row, got %+v", got[0])
	}
	if got[1].ZoneID != "z2" || got[1].ConsensusStatus != domain.StatusCutoff {
		t.Fatalf("z2 mismatch: %+v", got[1])
	}
}
