package client

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
)

func newQueue(t *testing.T) *Queue {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("queue_test_%d.db", time.Now().UnixNano()))
	db, err := OpenQueueDB(path)
	if err != nil {
		t.Fatalf("OpenQueueDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &Queue{DB: db}
}

func sp(s string) *string   { return &s }
func fp(f float64) *float64 { return &f }

func TestEnqueue_PersistsBeforeReturn(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, Draft{
		Category:    domain.CategoryServiceStatus,
		ServiceType: sp(domain.ServiceWater),
		Status:      sp(domain.StatusCutoff),
		Latitude:    fp(33.44),
		Longitude:   fp(36.25),
		Description: "no water",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a client id")
	}

	// The row is durable: a fresh reader over the same database sees it.
	var row domain.QueuedReport
	if err := q.DB.First(&row, "client_id = ?", id).Error; err != nil {
		t.Fatalf("load queued row: %v", err)
	}
	if row.State != domain.QueueStatePending || row.Category != domain.CategoryServiceStatus {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt must be stamped at enqueue time")
	}
}

func TestEnqueue_IDsAreUniqueAndStable(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := q.Enqueue(ctx, Draft{Category: domain.CategoryWaste, Description: "d"})
		if err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate client id generated: %s", id)
		}
		seen[id] = true
	}

	n, err := q.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if n != 20 {
		t.Fatalf("expected 20 pending, got %d", n)
	}
}

func TestQueueStateTransitions(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, Draft{Category: domain.CategoryOutage, Description: "d"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// A transient failure keeps the entry pending and records the attempt.
	if err := q.markFailed(ctx, id, fmt.Errorf("connection refused")); err != nil {
		t.Fatalf("markFailed: %v", err)
	}
	var row domain.QueuedReport
	if err := q.DB.First(&row, "client_id = ?", id).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.State != domain.QueueStatePending || row.Attempts != 1 || row.LastError == nil {
		t.Fatalf("unexpected row after failure: %+v", row)
	}

	// The ack record is the deletion itself.
	if err := q.markSynced(ctx, id); err != nil {
		t.Fatalf("markSynced: %v", err)
	}
	err = q.DB.First(&domain.QueuedReport{}, "client_id = ?", id).Error
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("expected the entry to be gone, got %v", err)
	}

	n, err := q.PendingCount(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected empty queue, n=%d err=%v", n, err)
	}
}

func TestListPending_CreationOrder(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	// Seed with explicit timestamps so order is deterministic.
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		row := domain.QueuedReport{
			ClientID:    id,
			Category:    domain.CategoryWaste,
			Description: "d",
			State:       domain.QueueStatePending,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := q.DB.Create(&row).Error; err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	items, err := q.listPending(ctx)
	if err != nil {
		t.Fatalf("listPending: %v", err)
	}
	if len(items) != 3 || items[0].ClientID != "first" || items[2].ClientID != "third" {
		t.Fatalf("unexpected order: %+v", items)
	}
}
