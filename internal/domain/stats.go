package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStats is one aggregated row per calendar day, upserted by the
// daily stats task so reruns for the same date are safe.
type DailyStats struct {
	Date                 time.Time
	NewUsers             int
	TotalUsers           int
	NewSubscriptions     int
	ActiveSubscriptions  int
	ExpiredSubscriptions int
	PaymentsCount        int
	PaymentsAmount       decimal.Decimal
}

// WeeklyReport is the 7-day summary sent to admins.
type WeeklyReport struct {
	From                time.Time
	To                  time.Time
	NewUsers            int
	TotalUsers          int
	NewSubscriptions    int
	ActiveSubscriptions int
	PaymentsCount       int
	PaymentsAmount      decimal.Decimal
	TopChannels         []ChannelCount
}

type ChannelCount struct {
	Title string
	Count int
}
