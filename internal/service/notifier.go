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
	"github.com/evseev/channelgate/internal/telegram"
)

const taskNotifications = "expiry_notifications"

// NotifierStore is the storage surface of the expiry-warning scheduler.
type NotifierStore interface {
	subjectStore
	ListExpiringInWindow(ctx context.Context, now time.Time, w domain.Window) ([]*domain.Subscription, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	MarkWindowNotified(ctx context.Context, id int64, w domain.Window) error
}

// Notifier warns users before their subscription expires, at most once
// per window per subscription. Windows run longest first, so a
// subscription created deep inside a window gets exactly one warning
// for the window it currently sits in.
type Notifier struct {
	store   NotifierStore
	tg      Messenger
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewNotifier(store NotifierStore, tg Messenger, limiter *rate.Limiter, log *slog.Logger) *Notifier {
	return &Notifier{
		store:   store,
		tg:      tg,
		limiter: limiter,
		log:     log.With("task", taskNotifications),
	}
}

func (n *Notifier) Run(ctx context.Context) error {
	now := time.Now().UTC()

	for _, w := range domain.Windows {
		if err := n.runWindow(ctx, now, w); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) runWindow(ctx context.Context, now time.Time, w domain.Window) error {
	subs, err := n.store.ListExpiringInWindow(ctx, now, w)
	if err != nil {
		return fmt.Errorf("list expiring in %s: %w", w, err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.notifyOne(ctx, sub, w)
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// notifyOne sends one warning and flags the window. The flag is set
// after the delivery attempt: on success, and on permanent failure
// (blocked bot, deleted account) where a retry can never succeed. A
// transient failure leaves the flag unset so the next hourly run
// retries.
func (n *Notifier) notifyOne(ctx context.Context, sub *domain.Subscription, w domain.Window) {
	user, err := n.store.GetUserByID(ctx, sub.UserID)
	if err != nil {
		n.log.Warn("cannot notify, user lookup failed",
			"subscription_id", sub.ID, "user_id", sub.UserID, "error", err)
		return
	}

	title, err := subjectTitle(ctx, n.store, sub.Kind, sub.ChannelID, sub.PackageID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) || errors.Is(err, domain.ErrPackageNotFound) {
			n.log.Warn("cannot notify, subscription target missing",
				"subscription_id", sub.ID, "kind", sub.Kind)
			return
		}
		n.log.Error("cannot notify, target lookup failed",
			"subscription_id", sub.ID, "error", err)
		return
	}

	text := expiryWindowText(user.Lang(), w, title, sub.ExpiresAt)
	sendErr := n.tg.SendMessage(ctx, user.TelegramID, text, renewButton(user.Lang(), sub))

	switch {
	case sendErr == nil:
		metrics.RecordNotification(string(w))
		metrics.RecordItem(taskNotifications, "ok")
	case telegram.IsPermanent(sendErr):
		metrics.RecordItem(taskNotifications, "permanent")
		n.log.Info("expiry warning undeliverable, not retrying",
			"subscription_id", sub.ID, "telegram_id", user.TelegramID, "error", sendErr)
	default:
		metrics.RecordItem(taskNotifications, "error")
		n.log.Warn("expiry warning failed, will retry next run",
			"subscription_id", sub.ID, "telegram_id", user.TelegramID, "error", sendErr)
		return
	}

	if err := n.store.MarkWindowNotified(ctx, sub.ID, w); err != nil {
		// Worst case the user gets the same warning twice next hour.
		n.log.Error("failed to flag notified window",
			"subscription_id", sub.ID, "window", w, "error", err)
	}
}
