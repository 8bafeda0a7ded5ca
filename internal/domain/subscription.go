package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type SubscriptionKind string

const (
	SubscriptionKindChannel SubscriptionKind = "channel"
	SubscriptionKindPackage SubscriptionKind = "package"
)

// Window is a fixed look-ahead threshold before expiry used for
// notification deduplication. Each window is notified at most once
// per subscription.
type Window string

const (
	Window3Days Window = "3d"
	Window1Day  Window = "1d"
	Window3Hrs  Window = "3h"
)

// Windows lists all notification windows, longest first.
var Windows = []Window{Window3Days, Window1Day, Window3Hrs}

func (w Window) Duration() time.Duration {
	switch w {
	case Window3Days:
		return 72 * time.Hour
	case Window1Day:
		return 24 * time.Hour
	case Window3Hrs:
		return 3 * time.Hour
	}
	return 0
}

type Subscription struct {
	ID         int64
	UserID     int64
	Kind       SubscriptionKind
	ChannelID  *int64
	PackageID  *int64
	Status     SubscriptionStatus
	StartsAt   time.Time
	ExpiresAt  time.Time
	Notified3d bool
	Notified1d bool
	Notified3h bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *Subscription) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func (s *Subscription) WindowNotified(w Window) bool {
	switch w {
	case Window3Days:
		return s.Notified3d
	case Window1Day:
		return s.Notified1d
	case Window3Hrs:
		return s.Notified3h
	}
	return false
}
