// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Report
// model, including the storage-level idempotency used by ingestion.
//
// Error semantics:
//   - ErrDuplicateClientID when the unique index on client_id rejects an
//     insert; the caller resolves this by fetching the existing row.
//   - ErrNotFound (aliasing gorm.ErrRecordNotFound) when a lookup misses.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicateClientID indicates that a report with the given client_id is
// already persisted. This is the storage-level idempotency signal: racing
// retries both attempt the insert and exactly one wins.
var ErrDuplicateClientID = errors.New("duplicate client id")

// CreateReport inserts a new Report row. The server-side ID is a fresh UUID;
// the client-supplied ClientID must already be set on r. ReceivedAt is
// stamped with the server clock.
//
// On a unique-index violation for client_id it returns ErrDuplicateClientID
// without modifying r.
func CreateReport(ctx context.Context, db *gorm.DB, r *domain.Report) error {
	r.ID = uuid.NewString()
	r.ReceivedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicateClientID
		}
		return err
	}
	return nil
}

// GetReportByClientID fetches the report carrying the given idempotency key,
// or ErrNotFound.
func GetReportByClientID(ctx context.Context, db *gorm.DB, clientID string) (*domain.Report, error) {
	var r domain.Report
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListServiceReportsSince returns the service-status reports for one
// (zone, service) pair whose client-asserted creation time falls inside
// [since, now]. Ordered by creation time ascending so the aggregation is
// replayable.
func ListServiceReportsSince(ctx context.Context, db *gorm.DB, zoneID, serviceType string, since, now time.Time) ([]domain.Report, error) {
	var out []domain.Report
	err := db.WithContext(ctx).
		Where("zone_id = ? AND service_type = ? AND category = ?", zoneID, serviceType, domain.CategoryServiceStatus).
		Where("created_at >= ? AND created_at <= ?", since, now).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListReportKeysSince returns the distinct (zone_id, service_type) pairs that
// received service-status reports inside the window. The reconciliation pass
// uses this to cover keys whose per-report trigger was missed.
func ListReportKeysSince(ctx context.Context, db *gorm.DB, since time.Time) ([]ZoneServiceKey, error) {
	var out []ZoneServiceKey
	err := db.WithContext(ctx).
		Model(&domain.Report{}).
		Select("DISTINCT zone_id, service_type").
		Where("category = ? AND zone_id IS NOT NULL AND service_type IS NOT NULL", domain.CategoryServiceStatus).
		Where("created_at >= ?", since).
		Scan(&out).Error
	return out, err
}

// ZoneServiceKey identifies one aggregation unit.
type ZoneServiceKey struct {
	ZoneID      string `gorm:"column:zone_id"`
	ServiceType string `gorm:"column:service_type"`
}

// CountReports returns the total number of reports matching the optional
// zone and category filters (empty string means no filter).
func CountReports(ctx context.Context, db *gorm.DB, zoneID, category string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Report{})
	if zoneID != "" {
		q = q.Where("zone_id = ?", zoneID)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListReportsPage returns a paginated slice of reports, newest first, with
// the same optional filters as CountReports.
func ListReportsPage(ctx context.Context, db *gorm.DB, zoneID, category string, offset, limit int) ([]domain.Report, error) {
	q := db.WithContext(ctx).Model(&domain.Report{})
	if zoneID != "" {
		q = q.Where("zone_id = ?", zoneID)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []domain.Report
	err := q.Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountReportsForInfraPoint returns how many reports reference the given
// infrastructure point. The priority scorer reads this as linkedReportCount.
func CountReportsForInfraPoint(ctx context.Context, db *gorm.DB, infraPointID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Report{}).
		Where("infra_point_id = ?", infraPointID).
		Count(&total).Error
	return total, err
}
