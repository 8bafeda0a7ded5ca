package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/domain"
	"github.com/evseev/channelgate/internal/metrics"
)

const taskBroadcasts = "broadcast_dispatch"

// BroadcasterStore is the storage surface of the broadcast dispatcher.
type BroadcasterStore interface {
	ListDueBroadcasts(ctx context.Context, now time.Time) ([]*domain.Broadcast, error)
	ClaimBroadcast(ctx context.Context, id int64) error
	FinishBroadcast(ctx context.Context, id int64, status domain.BroadcastStatus, sent, errs int) error
	ResolveAudience(ctx context.Context, b *domain.Broadcast) ([]*domain.User, error)
}

// Broadcaster delivers due scheduled broadcasts. The claim transition
// in storage guarantees each broadcast is dispatched by exactly one
// run even when runs overlap across processes.
type Broadcaster struct {
	store   BroadcasterStore
	tg      Messenger
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewBroadcaster(store BroadcasterStore, tg Messenger, limiter *rate.Limiter, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		store:   store,
		tg:      tg,
		limiter: limiter,
		log:     log.With("task", taskBroadcasts),
	}
}

func (d *Broadcaster) Run(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := d.store.ListDueBroadcasts(ctx, now)
	if err != nil {
		return fmt.Errorf("list due broadcasts: %w", err)
	}

	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.store.ClaimBroadcast(ctx, b.ID); err != nil {
			if errors.Is(err, domain.ErrAlreadyClaimed) {
				// Another run owns it.
				continue
			}
			d.log.Error("failed to claim broadcast", "broadcast_id", b.ID, "error", err)
			continue
		}

		d.dispatch(ctx, b)
	}
	return nil
}

// dispatch sends one claimed broadcast to its whole audience and
// records the terminal status. An empty audience completes with zero
// counters; only a failed audience resolution fails the broadcast.
func (d *Broadcaster) dispatch(ctx context.Context, b *domain.Broadcast) {
	audience, err := d.store.ResolveAudience(ctx, b)
	if err != nil {
		d.log.Error("audience resolution failed", "broadcast_id", b.ID, "error", err)
		d.finish(ctx, b.ID, domain.BroadcastStatusFailed, 0, 0)
		return
	}

	sent, failed := 0, 0
	for _, u := range audience {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-broadcast: record what was delivered so far.
			break
		}
		if err := d.deliver(ctx, b, u); err != nil {
			failed++
			metrics.RecordItem(taskBroadcasts, "error")
			d.log.Debug("broadcast delivery failed",
				"broadcast_id", b.ID, "telegram_id", u.TelegramID, "error", err)
		} else {
			sent++
			metrics.RecordItem(taskBroadcasts, "ok")
		}
		if err := d.limiter.Wait(ctx); err != nil {
			break
		}
	}

	d.finish(ctx, b.ID, domain.BroadcastStatusCompleted, sent, failed)
	d.log.Info("broadcast dispatched",
		"broadcast_id", b.ID, "audience", b.Audience, "sent", sent, "failed", failed)
}

func (d *Broadcaster) deliver(ctx context.Context, b *domain.Broadcast, u *domain.User) error {
	if b.MediaFileID != "" {
		return d.tg.SendMedia(ctx, u.TelegramID, b.MediaType, b.MediaFileID, b.Text)
	}
	return d.tg.SendMessage(ctx, u.TelegramID, b.Text, nil)
}

// finish records the terminal status. The write runs detached from the
// run context: a cancellation mid-delivery must not strand the
// broadcast in processing, where no later run would ever pick it up.
func (d *Broadcaster) finish(ctx context.Context, id int64, status domain.BroadcastStatus, sent, failed int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.OutboundCallTimeout)
	defer cancel()

	if err := d.store.FinishBroadcast(ctx, id, status, sent, failed); err != nil {
		d.log.Error("failed to finish broadcast", "broadcast_id", id, "error", err)
	}
}
