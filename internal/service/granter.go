package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/domain"
)

// GranterStore is the storage surface of the access granter.
type GranterStore interface {
	subjectStore
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ExtendSubscription(ctx context.Context, p *domain.Payment) error
}

// InviteLinker creates single-use channel invite links.
type InviteLinker interface {
	CreateInviteLink(ctx context.Context, chatID int64, name string, expireAt time.Time) (string, error)
}

// Granter turns a confirmed payment into access: it extends or creates
// the subscription and hands the user fresh invite links. It is the
// consumer of the PaymentConfirmed event.
type Granter struct {
	store GranterStore
	tg    Messenger
	links InviteLinker
	log   *slog.Logger
}

func NewGranter(store GranterStore, tg Messenger, links InviteLinker, log *slog.Logger) *Granter {
	return &Granter{store: store, tg: tg, links: links, log: log}
}

// PaymentConfirmed extends the subscription and sends invite links.
// Failures are logged, not returned: the payment is already paid and
// the caller has nothing to roll back.
func (g *Granter) PaymentConfirmed(ctx context.Context, p *domain.Payment) {
	user, err := g.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		g.log.Error("paid but user lookup failed", "payment_id", p.ID, "user_id", p.UserID, "error", err)
		return
	}

	if err := g.store.ExtendSubscription(ctx, p); err != nil {
		g.log.Error("paid but subscription not extended", "payment_id", p.ID, "error", err)
		return
	}

	channels, err := subjectChannels(ctx, g.store, p.Kind, p.ChannelID, p.PackageID)
	if err != nil {
		g.log.Error("paid but target resolution failed", "payment_id", p.ID, "error", err)
		return
	}

	links := make([]string, 0, len(channels))
	expireAt := time.Now().Add(config.InviteLinkSlack)
	for _, ch := range channels {
		link, err := g.links.CreateInviteLink(ctx, ch.TelegramID, inviteName(user), expireAt)
		if err != nil {
			g.log.Error("invite link creation failed",
				"payment_id", p.ID, "channel_id", ch.ID, "error", err)
			continue
		}
		links = append(links, link)
	}

	title, err := subjectTitle(ctx, g.store, p.Kind, p.ChannelID, p.PackageID)
	if err != nil {
		title = ""
	}
	text := accessGrantedText(user.Lang(), title, p.DurationDays, links)
	if err := g.tg.SendMessage(ctx, user.TelegramID, text, nil); err != nil {
		g.log.Error("access message not delivered",
			"payment_id", p.ID, "telegram_id", user.TelegramID, "error", err)
	}

	g.log.Info("access granted",
		"payment_id", p.ID, "user_id", user.ID, "kind", p.Kind, "days", p.DurationDays)
}

func inviteName(u *domain.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
