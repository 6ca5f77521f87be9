// Sync coordinator.
//
// Drain walks the queue in creation order and uploads each entry with a
// bounded per-item deadline. One transiently failing item never blocks the
// rest, and at most one drain runs at a time; callers racing for the slot
// simply find it occupied and move on. Drains are expected to be triggered
// on connectivity-regained events and opportunistically elsewhere.
package client

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRejected marks a definitive server-side rejection (validation or
// geofence). Uploaders wrap their rejection details around it; the
// coordinator drops such entries after surfacing them exactly once.
var ErrRejected = errors.New("report rejected by server")

// ErrDrainInProgress is returned when Drain is called while another drain
// holds the single-flight slot.
var ErrDrainInProgress = errors.New("drain already in progress")

// Uploader sends one queued report to the server. A nil return means the
// server durably acknowledged the report (first delivery and idempotent
// replay look identical). Errors wrapping ErrRejected are definitive; any
// other error is treated as transient and retried on a later drain.
type Uploader interface {
	Upload(ctx context.Context, item QueuedItem) error
}

// QueuedItem is the uploader's view of a queue entry.
type QueuedItem struct {
	ClientID     string
	Category     string
	ServiceType  *string
	Status       *string
	Latitude     *float64
	Longitude    *float64
	Description  string
	ImageURL     *string
	InfraPointID *string
	CreatedAt    time.Time
}

// DrainStats summarizes one drain cycle.
type DrainStats struct {
	Synced   int
	Rejected int
	Failed   int
}

// Coordinator drains the queue against the network, single-flight.
type Coordinator struct {
	Queue    *Queue
	Uploader Uploader

	// ItemTimeout bounds each upload attempt so a hung call cannot stall
	// the remainder of the queue.
	ItemTimeout time.Duration

	// OnRejected, when set, surfaces a definitive rejection to the UI layer.
	// It is invoked exactly once per rejected entry, before the entry is
	// dropped.
	OnRejected func(item QueuedItem, cause error)

	busy atomic.Bool
}

// Drain uploads every currently pending entry once. Entries enqueued while
// the drain is running are left for the next cycle. Returns
// ErrDrainInProgress when another drain is active.
func (c *Coordinator) Drain(ctx context.Context) (DrainStats, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return DrainStats{}, ErrDrainInProgress
	}
	defer c.busy.Store(false)

	var stats DrainStats

	items, err := c.Queue.listPending(ctx)
	if err != nil {
		return stats, err
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		entry := &items[i]
		item := QueuedItem{
			ClientID:     entry.ClientID,
			Category:     entry.Category,
			ServiceType:  entry.ServiceType,
			Status:       entry.Status,
			Latitude:     entry.Latitude,
			Longitude:    entry.Longitude,
			Description:  entry.Description,
			ImageURL:     entry.ImageURL,
			InfraPointID: entry.InfraPointID,
			CreatedAt:    entry.CreatedAt,
		}

		err := c.upload(ctx, item)
		switch {
		case err == nil:
			if derr := c.Queue.markSynced(ctx, item.ClientID); derr != nil {
				// The ack could not be recorded; the entry stays queued and
				// the next drain re-sends, which the server deduplicates.
				log.Error().Err(derr).Str("client_id", item.ClientID).Msg("failed to record ack")
				stats.Failed++
				continue
			}
			stats.Synced++

		case errors.Is(err, ErrRejected):
			if c.OnRejected != nil {
				c.OnRejected(item, err)
			}
			log.Warn().Err(err).Str("client_id", item.ClientID).Msg("report rejected, dropping")
			if derr := c.Queue.drop(ctx, item.ClientID); derr != nil {
				stats.Failed++
				continue
			}
			stats.Rejected++

		default:
			// Transient: keep the entry and move on to the next one.
			if merr := c.Queue.markFailed(ctx, item.ClientID, err); merr != nil {
				log.Error().Err(merr).Str("client_id", item.ClientID).Msg("failed to record attempt")
			}
			log.Debug().Err(err).Str("client_id", item.ClientID).Msg("upload failed, will retry")
			stats.Failed++
		}
	}

	return stats, nil
}

// upload runs one attempt under the per-item deadline.
func (c *Coordinator) upload(ctx context.Context, item QueuedItem) error {
	timeout := c.ItemTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Uploader.Upload(ctx, item)
}
