// Package service holds the scheduled background jobs of the engine:
// the subscription reconciler, the notification scheduler, the
// broadcast dispatcher, the pending-payment reconciler and the
// reporting tasks. Each job exposes a single Run method the scheduler
// triggers on its cadence. Jobs depend on narrow interfaces so tests
// can fake the store and the outbound gateways.
package service

import (
	"context"
	"strconv"

	"github.com/evseev/channelgate/internal/domain"
	"github.com/evseev/channelgate/internal/telegram"
)

// Messenger is the outbound Telegram surface the jobs use.
type Messenger interface {
	RevokeMembership(ctx context.Context, chatID, userID int64) error
	SendMessage(ctx context.Context, chatID int64, text string, buttons []telegram.Button) error
	SendMedia(ctx context.Context, chatID int64, mediaType domain.MediaType, fileID, caption string) error
}

// InvoiceChecker is the payment-provider surface the pending-payment
// reconciler polls.
type InvoiceChecker interface {
	Enabled() bool
	GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error)
}

// Events carries callbacks into the interactive purchase flow. The
// background jobs report lifecycle transitions through it instead of
// owning the follow-up logic themselves. Nil callbacks are skipped.
type Events struct {
	// AccessRevoked fires after a subscription is marked expired and
	// the kick attempts are done.
	AccessRevoked func(ctx context.Context, sub *domain.Subscription, user *domain.User)

	// PaymentConfirmed fires after a pending payment turns out paid.
	// The purchase flow owns granting access for it.
	PaymentConfirmed func(ctx context.Context, p *domain.Payment)
}

func (e *Events) accessRevoked(ctx context.Context, sub *domain.Subscription, user *domain.User) {
	if e != nil && e.AccessRevoked != nil {
		e.AccessRevoked(ctx, sub, user)
	}
}

func (e *Events) paymentConfirmed(ctx context.Context, p *domain.Payment) {
	if e != nil && e.PaymentConfirmed != nil {
		e.PaymentConfirmed(ctx, p)
	}
}

// subjectStore resolves the channel or package a subscription points at.
type subjectStore interface {
	GetChannelByID(ctx context.Context, id int64) (*domain.Channel, error)
	GetPackageByID(ctx context.Context, id int64) (*domain.Package, error)
	ListPackageChannels(ctx context.Context, packageID int64) ([]*domain.Channel, error)
}

// subjectTitle returns the display title of the channel or package a
// subscription or payment points at.
func subjectTitle(ctx context.Context, store subjectStore, kind domain.SubscriptionKind, channelID, packageID *int64) (string, error) {
	switch kind {
	case domain.SubscriptionKindPackage:
		if packageID == nil {
			return "", domain.ErrPackageNotFound
		}
		pkg, err := store.GetPackageByID(ctx, *packageID)
		if err != nil {
			return "", err
		}
		return pkg.Title, nil
	default:
		if channelID == nil {
			return "", domain.ErrChannelNotFound
		}
		ch, err := store.GetChannelByID(ctx, *channelID)
		if err != nil {
			return "", err
		}
		return ch.Title, nil
	}
}

// subjectChannels returns every channel the target grants access to.
// For a package that is each bundled channel.
func subjectChannels(ctx context.Context, store subjectStore, kind domain.SubscriptionKind, channelID, packageID *int64) ([]*domain.Channel, error) {
	switch kind {
	case domain.SubscriptionKindPackage:
		if packageID == nil {
			return nil, domain.ErrPackageNotFound
		}
		return store.ListPackageChannels(ctx, *packageID)
	default:
		if channelID == nil {
			return nil, domain.ErrChannelNotFound
		}
		ch, err := store.GetChannelByID(ctx, *channelID)
		if err != nil {
			return nil, err
		}
		return []*domain.Channel{ch}, nil
	}
}

// renewButton builds the inline button that takes the user back into
// the purchase flow for the same channel or package.
func renewButton(lang string, sub *domain.Subscription) []telegram.Button {
	data := ""
	switch {
	case sub.Kind == domain.SubscriptionKindPackage && sub.PackageID != nil:
		data = "buy:package:" + strconv.FormatInt(*sub.PackageID, 10)
	case sub.ChannelID != nil:
		data = "buy:channel:" + strconv.FormatInt(*sub.ChannelID, 10)
	default:
		return nil
	}
	return []telegram.Button{{Text: renewButtonText(lang), CallbackData: data}}
}
