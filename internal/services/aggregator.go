// Package services – Aggregator
//
// This file implements the status aggregator: it derives one consensus
// ZoneStatus per (zoneId, serviceType) pair from the recent window of
// service-status reports. Each qualifying report contributes an
// exponentially decaying weight; weights are summed per asserted status and
// the heaviest status wins, with ties resolved by severity so the more
// critical state is never hidden by iteration order.
//
// Recompute is a pure function of the report window and an explicit `now`:
// running it again with no new reports reproduces the same consensus, which
// keeps the scheduled reconciliation pass drift-free.
//
// Observability: recomputes are OpenTelemetry-instrumented and counted in
// Prometheus; failures during scheduled runs are logged and leave the
// previously computed row untouched.
package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
)

var (
	// aggRecomputes counts consensus recomputes by service type and outcome status.
	aggRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_status_recomputes_total",
			Help: "Total number of zone status consensus recomputes.",
		},
		[]string{"service", "status"},
	)

	// aggErrors counts recompute failures (previous consensus left in place).
	aggErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_status_recompute_errors_total",
			Help: "Total number of failed zone status recomputes.",
		},
	)
)

func init() {
	prometheus.MustRegister(aggRecomputes, aggErrors)
}

// Aggregator recomputes zone consensus statuses from raw reports.
//
// Recomputes for the same (zone, service) key are serialized through a
// per-key mutex, so two concurrent triggers cannot interleave their reads
// and writes. Different keys proceed in parallel.
type Aggregator struct {
	DB *gorm.DB

	// HalfLife is the decay half-life: a report HalfLife old weighs 0.5.
	HalfLife time.Duration
	// Window bounds the report window; weight is exactly zero at or beyond it.
	Window time.Duration

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
	inflight sync.WaitGroup
}

// NewAggregator constructs an Aggregator with the given decay parameters.
func NewAggregator(db *gorm.DB, halfLife, window time.Duration) *Aggregator {
	return &Aggregator{
		DB:       db,
		HalfLife: halfLife,
		Window:   window,
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing recomputes for one key.
func (a *Aggregator) lockFor(zoneID, serviceType string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := zoneID + "\x00" + serviceType
	l, ok := a.keyLocks[k]
	if !ok {
		l = &sync.Mutex{}
		a.keyLocks[k] = l
	}
	return l
}

// Schedule triggers an asynchronous recompute for one key. It never blocks
// the caller; ingestion uses it so the HTTP response does not wait on
// aggregation. Errors are logged and swallowed, leaving the previous
// consensus in place.
func (a *Aggregator) Schedule(zoneID, serviceType string) {
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := a.Recompute(ctx, zoneID, serviceType, time.Now().UTC()); err != nil {
			aggErrors.Inc()
			log.Error().
				Err(err).
				Str("zone_id", zoneID).
				Str("service", serviceType).
				Msg("scheduled zone status recompute failed")
		}
	}()
}

// Wait blocks until all scheduled recomputes have finished. Intended for
// shutdown and tests.
func (a *Aggregator) Wait() {
	a.inflight.Wait()
}

// Recompute derives and persists the consensus for one (zone, service) key
// from the report window ending at now. It is safe to call concurrently for
// different keys; calls for the same key are serialized.
func (a *Aggregator) Recompute(ctx context.Context, zoneID, serviceType string, now time.Time) (*domain.ZoneStatus, error) {
	tr := otel.Tracer("services/Aggregator")
	ctx, span := tr.Start(ctx, "Recompute",
		trace.WithAttributes(
			attribute.String("zone.id", zoneID),
			attribute.String("service.type", serviceType),
		),
	)
	defer span.End()

	l := a.lockFor(zoneID, serviceType)
	l.Lock()
	defer l.Unlock()

	since := now.Add(-a.Window)
	reports, err := repo.ListServiceReportsSince(ctx, a.DB, zoneID, serviceType, since, now)
	if err != nil {
		return nil, err
	}

	status, confidence, supporting := a.Consensus(reports, now)

	zs := &domain.ZoneStatus{
		ZoneID:                zoneID,
		ServiceType:           serviceType,
		ConsensusStatus:       status,
		Confidence:            confidence,
		SupportingReportCount: supporting,
		ComputedAt:            now,
	}
	if err := repo.AppendZoneStatus(ctx, a.DB, zs); err != nil {
		return nil, err
	}
	aggRecomputes.WithLabelValues(serviceType, status).Inc()
	return zs, nil
}

// Consensus folds a window of reports into (status, confidence, supporting
// report count). It is a pure function of its inputs.
//
// Rules:
//   - weight(report) = 0.5^(age/HalfLife) for 0 <= age < Window, else 0;
//     small negative ages (client clock ahead of server) count with full
//     weight rather than being discarded.
//   - the status with the greatest summed weight wins;
//   - exact ties resolve by severity, cutoff > unstable > available;
//   - zero total weight yields StatusUnknown with confidence 0, which is a
//     distinct state from StatusAvailable.
func (a *Aggregator) Consensus(reports []domain.Report, now time.Time) (status string, confidence float64, supporting int) {
	weights := map[string]float64{
		domain.StatusAvailable: 0,
		domain.StatusUnstable:  0,
		domain.StatusCutoff:    0,
	}

	for i := range reports {
		r := &reports[i]
		if r.Status == nil || !domain.ValidReportStatus(*r.Status) {
			continue
		}
		w := a.weightAt(r.CreatedAt, now)
		if w <= 0 {
			continue
		}
		weights[*r.Status] += w
		supporting++
	}

	total := weights[domain.StatusAvailable] + weights[domain.StatusUnstable] + weights[domain.StatusCutoff]
	if total == 0 {
		return domain.StatusUnknown, 0, 0
	}

	// Walk in descending severity so an exact tie keeps the more critical
	// status. Strict inequality is what makes the tie-break deterministic.
	winner := domain.StatusCutoff
	best := weights[domain.StatusCutoff]
	for _, s := range []string{domain.StatusUnstable, domain.StatusAvailable} {
		if weights[s] > best {
			winner = s
			best = weights[s]
		}
	}
	return winner, best / total, supporting
}

// weightAt computes the decay weight of a report created at createdAt when
// evaluated at now.
func (a *Aggregator) weightAt(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age >= a.Window {
		return 0
	}
	if age < 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(a.HalfLife))
}

// ReconcileAll recomputes every key that either received a service-status
// report inside the window or has a consensus row on record. The second set
// matters for zones going quiet: with no fresh reports the per-report
// trigger never fires, and only this pass flips them to unknown.
func (a *Aggregator) ReconcileAll(ctx context.Context, now time.Time) error {
	tr := otel.Tracer("services/Aggregator")
	ctx, span := tr.Start(ctx, "ReconcileAll")
	defer span.End()

	keys, err := repo.ListReportKeysSince(ctx, a.DB, now.Add(-a.Window))
	if err != nil {
		return err
	}
	statusKeys, err := a.listStatusKeys(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(keys)+len(statusKeys))
	var firstErr error
	for _, k := range append(keys, statusKeys...) {
		id := k.ZoneID + "\x00" + k.ServiceType
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := a.Recompute(ctx, k.ZoneID, k.ServiceType, now); err != nil {
			aggErrors.Inc()
			log.Error().
				Err(err).
				Str("zone_id", k.ZoneID).
				Str("service", k.ServiceType).
				Msg("reconciliation recompute failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// listStatusKeys returns the distinct keys present in the zone status log.
func (a *Aggregator) listStatusKeys(ctx context.Context) ([]repo.ZoneServiceKey, error) {
	var out []repo.ZoneServiceKey
	err := a.DB.WithContext(ctx).
		Model(&domain.ZoneStatus{}).
		Select("DISTINCT zone_id, service_type").
		Scan(&out).Error
	return out, err
}
