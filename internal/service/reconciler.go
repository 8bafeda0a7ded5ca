package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/evseev/channelgate/internal/domain"
	"github.com/evseev/channelgate/internal/metrics"
)

const taskExpiredSweep = "expired_sweep"

// ReconcilerStore is the storage surface of the expired-subscription
// sweep.
type ReconcilerStore interface {
	subjectStore
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Subscription, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	MarkExpired(ctx context.Context, id int64) error
}

// Reconciler converges channel membership with subscription state: any
// active subscription past its expiry gets its members kicked and the
// row marked expired.
type Reconciler struct {
	store   ReconcilerStore
	tg      Messenger
	limiter *rate.Limiter
	events  *Events
	log     *slog.Logger
}

func NewReconciler(store ReconcilerStore, tg Messenger, limiter *rate.Limiter, events *Events, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		tg:      tg,
		limiter: limiter,
		events:  events,
		log:     log.With("task", taskExpiredSweep),
	}
}

// Run processes one sweep. Per-item failures are logged and counted,
// never abort the batch; only a failed listing is fatal.
func (r *Reconciler) Run(ctx context.Context) error {
	now := time.Now().UTC()

	subs, err := r.store.ListExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("list expired subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	processed, failed := 0, 0
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.expireOne(ctx, sub); err != nil {
			failed++
			metrics.RecordItem(taskExpiredSweep, "error")
			r.log.Error("failed to expire subscription",
				"subscription_id", sub.ID, "user_id", sub.UserID, "error", err)
		} else {
			processed++
			metrics.RecordItem(taskExpiredSweep, "ok")
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	r.log.Info("expired sweep finished", "processed", processed, "failed", failed)
	return nil
}

func (r *Reconciler) expireOne(ctx context.Context, sub *domain.Subscription) error {
	user, err := r.store.GetUserByID(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			r.log.Warn("expired subscription has no user, skipping",
				"subscription_id", sub.ID, "user_id", sub.UserID)
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	channels, err := subjectChannels(ctx, r.store, sub.Kind, sub.ChannelID, sub.PackageID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) || errors.Is(err, domain.ErrPackageNotFound) {
			r.log.Warn("expired subscription points at a missing target, skipping",
				"subscription_id", sub.ID, "kind", sub.Kind)
			return nil
		}
		return fmt.Errorf("resolve channels: %w", err)
	}

	// Kick from every channel, then mark expired regardless of kick
	// failures. A subscription left active because Telegram was down
	// would be swept again forever; a failed kick is retried naturally
	// when the user next appears in a sweep of the same channel.
	for _, ch := range channels {
		if err := r.tg.RevokeMembership(ctx, ch.TelegramID, user.TelegramID); err != nil {
			r.log.Error("revoke failed, marking expired anyway",
				"subscription_id", sub.ID, "channel_id", ch.ID, "error", err)
		}
	}

	if err := r.store.MarkExpired(ctx, sub.ID); err != nil {
		return err
	}

	r.events.accessRevoked(ctx, sub, user)
	r.notifyExpired(ctx, sub, user)
	return nil
}

// notifyExpired tells the user their access is gone. Best effort: a
// delivery failure never resurrects the subscription.
func (r *Reconciler) notifyExpired(ctx context.Context, sub *domain.Subscription, user *domain.User) {
	title, err := subjectTitle(ctx, r.store, sub.Kind, sub.ChannelID, sub.PackageID)
	if err != nil {
		title = ""
	}
	text := expiredText(user.Lang(), title)
	if err := r.tg.SendMessage(ctx, user.TelegramID, text, renewButton(user.Lang(), sub)); err != nil {
		r.log.Debug("expiry notice not delivered",
			"user_id", user.ID, "telegram_id", user.TelegramID, "error", err)
	}
}
