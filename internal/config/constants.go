package config

import "time"

const (
	// Task intervals
	ExpiredSweepInterval   = 5 * time.Minute
	NotificationInterval   = 1 * time.Hour
	BroadcastInterval      = 1 * time.Minute
	PendingPaymentInterval = 30 * time.Minute

	// Misfire grace: a trigger missed by less than this still fires once
	MisfireGrace = 5 * time.Minute

	// Upper bound for a single task execution
	TaskRunTimeout = 10 * time.Minute

	// Per-call timeout for outbound Telegram / payment API calls
	OutboundCallTimeout = 30 * time.Second

	// Outbound message pacing (messages per second)
	SendRatePerSecond = 20
	SendBurst         = 5

	// Pending payments older than this are left for retention
	PendingPaymentMaxAge = 24 * time.Hour

	// Retention windows for the cleanup task
	BroadcastRetention    = 30 * 24 * time.Hour
	SubscriptionRetention = 90 * 24 * time.Hour
	UnpaidRetention       = 7 * 24 * time.Hour

	// Invite links expire this long after they are issued
	InviteLinkSlack = 24 * time.Hour
)
