// Package services – IngestService
//
// This file implements the server-side ingestion path for citizen reports.
// It validates the submission, enforces the municipal geofence, resolves the
// coordinate to a zone once at ingestion time, persists the report behind the
// storage-level client_id uniqueness constraint, and on first-time inserts
// schedules an asynchronous consensus recompute for the affected
// (zone, service) key.
//
// Idempotency contract: submitting the same clientId any number of times
// yields the same persisted report. The duplicate path is not an error; the
// existing row is returned so racing client retries are indistinguishable
// from a single submission.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/config"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/geo"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
)

var (
	// ingestAccepted counts first-time persisted reports by category.
	ingestAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_ingested_total",
			Help: "Total number of reports persisted for the first time.",
		},
		[]string{"category"},
	)

	// ingestDuplicates counts submissions resolved by returning an existing row.
	ingestDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_duplicate_total",
			Help: "Total number of submissions deduplicated on client_id.",
		},
	)

	// ingestRejected counts definitive rejections by reason class.
	ingestRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_rejected_total",
			Help: "Total number of submissions rejected as invalid.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(ingestAccepted, ingestDuplicates, ingestRejected)
}

// Submission is the typed ingestion payload. Optional fields are pointers;
// InfraPointID is the bounded extension slot linking a report to a piece of
// infrastructure for priority scoring.
type Submission struct {
	ClientID     string
	Category     string
	ServiceType  *string
	Status       *string
	Latitude     *float64
	Longitude    *float64
	Description  string
	ImageURL     *string
	InfraPointID *string
	// CreatedAt is the client-asserted creation time; the zero value means
	// "now" (clients without a trustworthy clock may omit it).
	CreatedAt time.Time
}

// IngestService validates submissions and persists reports idempotently.
type IngestService struct {
	DB     *gorm.DB
	Zones  *geo.Index
	Bounds config.BoundsConfig

	// MaxDescriptionRunes caps the description length.
	MaxDescriptionRunes int

	// Aggregate is called asynchronously after a first-time insert of a
	// service-status report. It must not block; Aggregator.Schedule fits.
	Aggregate func(zoneID, serviceType string)
}

// IngestResult reports whether the row was freshly created or replayed.
type IngestResult struct {
	Report  *domain.Report
	Created bool
}

// Ingest validates and persists one submission.
//
// Validation failures and geofence rejections are definitive: the sentinel
// errors from errors.go are returned and the caller must not retry.
// Storage failures are transient and safe to retry thanks to the client_id
// constraint.
func (s *IngestService) Ingest(ctx context.Context, sub Submission) (*IngestResult, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.String("report.client_id", sub.ClientID),
			attribute.String("report.category", sub.Category),
		),
	)
	defer span.End()

	r, err := s.validate(sub)
	if err != nil {
		ingestRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	if err := repo.CreateReport(ctx, s.DB, r); err != nil {
		if errors.Is(err, repo.ErrDuplicateClientID) {
			existing, gerr := repo.GetReportByClientID(ctx, s.DB, sub.ClientID)
			if gerr != nil {
				// The row exists but could not be read back: transient.
				return nil, gerr
			}
			ingestDuplicates.Inc()
			return &IngestResult{Report: existing, Created: false}, nil
		}
		return nil, err
	}

	ingestAccepted.WithLabelValues(r.Category).Inc()

	// First-time insert only: kick the aggregator for the affected key
	// without blocking the response.
	if s.Aggregate != nil && r.Category == domain.CategoryServiceStatus && r.ZoneID != nil && r.ServiceType != nil {
		s.Aggregate(*r.ZoneID, *r.ServiceType)
	}

	return &IngestResult{Report: r, Created: true}, nil
}

// validate normalizes and checks a submission, returning the Report row to
// insert. The zone is resolved here, once, so later recomputes never repeat
// the geometry lookup.
func (s *IngestService) validate(sub Submission) (*domain.Report, error) {
	clientID := strings.TrimSpace(sub.ClientID)
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	if !domain.ValidCategory(sub.Category) {
		return nil, ErrInvalidCategory
	}
	if sub.ServiceType != nil && !domain.ValidServiceType(*sub.ServiceType) {
		return nil, ErrInvalidServiceType
	}
	if sub.Status != nil && !domain.ValidReportStatus(*sub.Status) {
		return nil, ErrInvalidStatus
	}
	if sub.Category == domain.CategoryServiceStatus && (sub.ServiceType == nil || sub.Status == nil) {
		return nil, ErrStatusRequiresService
	}

	desc := strings.TrimSpace(sub.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}
	max := s.MaxDescriptionRunes
	if max <= 0 {
		max = 2000
	}
	if utf8.RuneCountInString(desc) > max {
		return nil, ErrDescriptionTooLong
	}

	if (sub.Latitude == nil) != (sub.Longitude == nil) {
		return nil, ErrPartialCoordinates
	}

	r := &domain.Report{
		ClientID:     clientID,
		Category:     sub.Category,
		ServiceType:  sub.ServiceType,
		Status:       sub.Status,
		Latitude:     sub.Latitude,
		Longitude:    sub.Longitude,
		Description:  desc,
		ImageURL:     sub.ImageURL,
		InfraPointID: sub.InfraPointID,
		CreatedAt:    sub.CreatedAt,
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	if sub.Latitude != nil && sub.Longitude != nil {
		lat, lng := *sub.Latitude, *sub.Longitude
		if lat < s.Bounds.MinLat || lat > s.Bounds.MaxLat || lng < s.Bounds.MinLng || lng > s.Bounds.MaxLng {
			return nil, ErrOutsideMunicipality
		}
		if s.Zones != nil {
			if zoneID, err := s.Zones.Resolve(lat, lng); err == nil {
				r.ZoneID = &zoneID
			}
			// A point inside the bounds but in a gap between zone polygons
			// is accepted without a zone; it simply never feeds a consensus.
		}
	}

	return r, nil
}

// rejectReason maps validation errors to a bounded metric label set.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrOutsideMunicipality):
		return "geofence"
	case errors.Is(err, ErrMissingClientID):
		return "client_id"
	case errors.Is(err, ErrDescriptionTooLong), errors.Is(err, ErrEmptyDescription):
		return "description"
	default:
		return "enum"
	}
}
