// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// ZoneStatus log written by the status aggregator.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
)

// AppendZoneStatus inserts a freshly computed consensus row. Rows are never
// updated or deleted; superseded rows remain as history.
func AppendZoneStatus(ctx context.Context, db *gorm.DB, zs *domain.ZoneStatus) error {
	zs.ID = uuid.NewString()
	return db.WithContext(ctx).Create(zs).Error
}

// LatestZoneStatus returns the most recent consensus row for one
// (zone, service) pair, or ErrNotFound when the aggregator has never run
// for that key.
func LatestZoneStatus(ctx context.Context, db *gorm.DB, zoneID, serviceType string) (*domain.ZoneStatus, error) {
	var zs domain.ZoneStatus
	err := db.WithContext(ctx).
		Where("zone_id = ? AND service_type = ?", zoneID, serviceType).
		Order("computed_at desc").
		First(&zs).Error
	if err != nil {
		return nil, err
	}
	return &zs, nil
}

// LatestZoneStatuses returns the newest row per zone for the given service
// type, across all zones that have ever been computed. The heatmap builder
// is the primary consumer.
func LatestZoneStatuses(ctx context.Context, db *gorm.DB, serviceType string) ([]domain.ZoneStatus, error) {
	var out []domain.ZoneStatus
	// Correlated subquery keeps exactly the newest row per zone; ties on
	// computed_at cannot happen for a single key because recomputes for a
	// key are serialized.
	err := db.WithContext(ctx).
		Where("service_type = ?", serviceType).
		Where(`computed_at = (SELECT MAX(s2.computed_at) FROM zone_statuses s2
			WHERE s2.zone_id = zone_statuses.zone_id AND s2.service_type = zone_statuses.service_type)`).
		Order("zone_id asc").
		Find(&out).Error
	return out, err
}
