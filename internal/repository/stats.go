package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/evseev/channelgate/internal/domain"
)

// CollectDailyStats aggregates counters for one calendar day.
func (s *Store) CollectDailyStats(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &domain.DailyStats{Date: dayStart}

	query := `SELECT
		(SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2),
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM subscriptions WHERE created_at >= $1 AND created_at < $2),
		(SELECT COUNT(*) FROM subscriptions WHERE status = 'active'),
		(SELECT COUNT(*) FROM subscriptions WHERE status = 'expired' AND updated_at >= $1 AND updated_at < $2),
		(SELECT COUNT(*) FROM payments WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2),
		(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2)`
	err := s.db.QueryRow(ctx, query, dayStart, dayEnd).Scan(
		&stats.NewUsers,
		&stats.TotalUsers,
		&stats.NewSubscriptions,
		&stats.ActiveSubscriptions,
		&stats.ExpiredSubscriptions,
		&stats.PaymentsCount,
		&stats.PaymentsAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("collect daily stats: %w", err)
	}
	return stats, nil
}

// SaveDailyStats upserts the row for its date, so rerunning the daily
// task for the same day overwrites rather than duplicates.
func (s *Store) SaveDailyStats(ctx context.Context, stats *domain.DailyStats) error {
	query := `INSERT INTO daily_stats (date, new_users, total_users, new_subscriptions,
			active_subscriptions, expired_subscriptions, payments_count, payments_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			new_users = EXCLUDED.new_users,
			total_users = EXCLUDED.total_users,
			new_subscriptions = EXCLUDED.new_subscriptions,
			active_subscriptions = EXCLUDED.active_subscriptions,
			expired_subscriptions = EXCLUDED.expired_subscriptions,
			payments_count = EXCLUDED.payments_count,
			payments_amount = EXCLUDED.payments_amount`
	_, err := s.db.Exec(ctx, query,
		stats.Date,
		stats.NewUsers,
		stats.TotalUsers,
		stats.NewSubscriptions,
		stats.ActiveSubscriptions,
		stats.ExpiredSubscriptions,
		stats.PaymentsCount,
		stats.PaymentsAmount,
	)
	if err != nil {
		return fmt.Errorf("save daily stats: %w", err)
	}
	return nil
}

// CollectWeeklyReport builds the 7-day summary for admins.
func (s *Store) CollectWeeklyReport(ctx context.Context, from, to time.Time) (*domain.WeeklyReport, error) {
	report := &domain.WeeklyReport{From: from, To: to}

	query := `SELECT
		(SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2),
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM subscriptions WHERE created_at >= $1 AND created_at < $2),
		(SELECT COUNT(*) FROM subscriptions WHERE status = 'active'),
		(SELECT COUNT(*) FROM payments WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2),
		(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2)`
	err := s.db.QueryRow(ctx, query, from, to).Scan(
		&report.NewUsers,
		&report.TotalUsers,
		&report.NewSubscriptions,
		&report.ActiveSubscriptions,
		&report.PaymentsCount,
		&report.PaymentsAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("collect weekly report: %w", err)
	}

	top := `SELECT c.title, COUNT(*) AS cnt
		FROM subscriptions s
		JOIN channels c ON c.id = s.channel_id
		WHERE s.status = 'active'
		GROUP BY c.title
		ORDER BY cnt DESC
		LIMIT 5`
	rows, err := s.db.Query(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("collect top channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc domain.ChannelCount
		if err := rows.Scan(&cc.Title, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan top channel: %w", err)
		}
		report.TopChannels = append(report.TopChannels, cc)
	}
	return report, rows.Err()
}
