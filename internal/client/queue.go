// Package client implements the device-side half of the pipeline: a durable
// submission queue backed by a local SQLite file and a single-flight sync
// coordinator that drains it against the server.
//
// Durability contract: a report is persisted locally, with its permanent
// client-generated idempotency key, before Enqueue returns. An entry leaves
// the queue only when the server acknowledgment has been durably recorded
// (the row deletion is that record) or after a definitive rejection has been
// surfaced. A crash at any other point results in a re-send, which the
// server-side client_id constraint makes harmless.
package client

import (
	"context"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
)

// OpenQueueDB opens (or creates) the device-local queue database and applies
// its schema. WAL keeps enqueue cheap while a drain holds the read side.
func OpenQueueDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if err := db.AutoMigrate(&domain.QueuedReport{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Draft is a report as composed in the UI, before it has an identity.
type Draft struct {
	Category     string
	ServiceType  *string
	Status       *string
	Latitude     *float64
	Longitude    *float64
	Description  string
	ImageURL     *string
	InfraPointID *string
}

// Queue is the durable submission queue. Enqueue may run concurrently with
// an in-flight drain; new rows are simply picked up on the next cycle.
type Queue struct {
	DB *gorm.DB
}

// Enqueue assigns a collision-resistant client ID and persists the draft.
// The ID is returned so the UI can correlate later acknowledgments; it never
// changes for the lifetime of the entry, across restarts included.
func (q *Queue) Enqueue(ctx context.Context, d Draft) (string, error) {
	item := &domain.QueuedReport{
		ClientID:     uuid.NewString(),
		Category:     d.Category,
		ServiceType:  d.ServiceType,
		Status:       d.Status,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		Description:  d.Description,
		ImageURL:     d.ImageURL,
		InfraPointID: d.InfraPointID,
		State:        domain.QueueStatePending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := q.DB.WithContext(ctx).Create(item).Error; err != nil {
		return "", err
	}
	return item.ClientID, nil
}

// PendingCount returns how many entries still await acknowledgment. The UI
// layer polls this for its "N reports waiting to sync" affordance.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := q.DB.WithContext(ctx).
		Model(&domain.QueuedReport{}).
		Where("state = ?", domain.QueueStatePending).
		Count(&n).Error
	return n, err
}

// listPending returns pending entries in creation order.
func (q *Queue) listPending(ctx context.Context) ([]domain.QueuedReport, error) {
	var out []domain.QueuedReport
	err := q.DB.WithContext(ctx).
		Where("state = ?", domain.QueueStatePending).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// markSynced removes an acknowledged entry. The deletion commit is the
// durable "ack recorded" event the crash-safety contract hinges on.
func (q *Queue) markSynced(ctx context.Context, clientID string) error {
	return q.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&domain.QueuedReport{}).Error
}

// markFailed records a transient failure; the entry stays pending.
func (q *Queue) markFailed(ctx context.Context, clientID string, cause error) error {
	msg := cause.Error()
	return q.DB.WithContext(ctx).
		Model(&domain.QueuedReport{}).
		Where("client_id = ?", clientID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}

// drop removes a definitively rejected entry after its error has been
// surfaced. Rejected items must not be retried forever.
func (q *Queue) drop(ctx context.Context, clientID string) error {
	return q.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&domain.QueuedReport{}).Error
}
