package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/evseev/channelgate/internal/domain"
)

const subscriptionColumns = `id, user_id, kind, channel_id, package_id, status, starts_at,
	expires_at, notified_3d, notified_1d, notified_3h, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Kind,
		&sub.ChannelID,
		&sub.PackageID,
		&sub.Status,
		&sub.StartsAt,
		&sub.ExpiresAt,
		&sub.Notified3d,
		&sub.Notified1d,
		&sub.Notified3h,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) listSubscriptions(ctx context.Context, query string, args ...any) ([]*domain.Subscription, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListExpired returns active subscriptions whose expiry is at or before now.
// Already-expired rows drop out of the result, so reruns converge naturally.
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at`
	return s.listSubscriptions(ctx, query, now)
}

// notifiedColumn maps a window to its flag column. The whitelist keeps
// window values out of SQL text.
func notifiedColumn(w domain.Window) (string, error) {
	switch w {
	case domain.Window3Days:
		return "notified_3d", nil
	case domain.Window1Day:
		return "notified_1d", nil
	case domain.Window3Hrs:
		return "notified_3h", nil
	}
	return "", fmt.Errorf("unknown notification window %q", w)
}

// ListExpiringInWindow returns active subscriptions expiring inside
// [now, now+window) that have not yet been notified for that window.
func (s *Store) ListExpiringInWindow(ctx context.Context, now time.Time, w domain.Window) ([]*domain.Subscription, error) {
	col, err := notifiedColumn(w)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active' AND NOT ` + col + `
		  AND expires_at >= $1 AND expires_at < $2
		ORDER BY expires_at`
	return s.listSubscriptions(ctx, query, now, now.Add(w.Duration()))
}

func (s *Store) MarkExpired(ctx context.Context, id int64) error {
	query := `UPDATE subscriptions SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'active'`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark subscription expired: %w", err)
	}
	return nil
}

// MarkWindowNotified sets a window's sent flag. Flags only ever go from
// false to true.
func (s *Store) MarkWindowNotified(ctx context.Context, id int64, w domain.Window) error {
	col, err := notifiedColumn(w)
	if err != nil {
		return err
	}
	query := `UPDATE subscriptions SET ` + col + ` = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark window notified: %w", err)
	}
	return nil
}

// ExtendSubscription pushes the expiry of an active subscription for the
// same user and target, or creates a fresh one. Used when a pending
// payment turns out paid.
func (s *Store) ExtendSubscription(ctx context.Context, p *domain.Payment) error {
	duration := time.Duration(p.DurationDays) * 24 * time.Hour

	query := `UPDATE subscriptions
		SET expires_at = expires_at + $2,
		    notified_3d = FALSE, notified_1d = FALSE, notified_3h = FALSE,
		    updated_at = NOW()
		WHERE user_id = $1 AND status = 'active' AND kind = $3
		  AND channel_id IS NOT DISTINCT FROM $4
		  AND package_id IS NOT DISTINCT FROM $5`
	tag, err := s.db.Exec(ctx, query, p.UserID, duration, p.Kind, p.ChannelID, p.PackageID)
	if err != nil {
		return fmt.Errorf("extend subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	insert := `INSERT INTO subscriptions (user_id, kind, channel_id, package_id, status, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, 'active', NOW(), NOW() + $5)`
	if _, err := s.db.Exec(ctx, insert, p.UserID, p.Kind, p.ChannelID, p.PackageID, duration); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// DeleteOldTerminalSubscriptions removes expired/cancelled rows older
// than the retention cutoff and reports how many were deleted.
func (s *Store) DeleteOldTerminalSubscriptions(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM subscriptions
		WHERE status IN ('expired', 'cancelled') AND updated_at < $1`
	tag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete old subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
