package domain

import "time"

type Channel struct {
	ID         int64
	TelegramID int64
	Title      string
	IsActive   bool
	CreatedAt  time.Time
}

// Package bundles several channels under one subscription.
type Package struct {
	ID        int64
	Title     string
	IsActive  bool
	CreatedAt time.Time
}
