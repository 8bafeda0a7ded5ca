package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

type Payment struct {
	ID           int64
	UserID       int64
	InvoiceID    string
	Amount       decimal.Decimal
	Status       PaymentStatus
	Kind         SubscriptionKind
	ChannelID    *int64
	PackageID    *int64
	DurationDays int
	CreatedAt    time.Time
	PaidAt       *time.Time
}
