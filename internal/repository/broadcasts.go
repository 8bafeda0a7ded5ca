package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/evseev/channelgate/internal/domain"
)

const broadcastColumns = `id, text, COALESCE(media_type, ''), COALESCE(media_file_id, ''),
	audience, channel_id, newer_than_days, status, scheduled_at, sent_count, error_count,
	started_at, finished_at, created_at`

func scanBroadcast(row pgx.Row) (*domain.Broadcast, error) {
	var b domain.Broadcast
	err := row.Scan(
		&b.ID,
		&b.Text,
		&b.MediaType,
		&b.MediaFileID,
		&b.Audience,
		&b.ChannelID,
		&b.NewerThanDays,
		&b.Status,
		&b.ScheduledAt,
		&b.SentCount,
		&b.ErrorCount,
		&b.StartedAt,
		&b.FinishedAt,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan broadcast: %w", err)
	}
	return &b, nil
}

// ListDueBroadcasts returns scheduled broadcasts whose time has come.
func (s *Store) ListDueBroadcasts(ctx context.Context, now time.Time) ([]*domain.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + `
		FROM broadcasts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at`
	rows, err := s.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list due broadcasts: %w", err)
	}
	defer rows.Close()

	broadcasts := make([]*domain.Broadcast, 0)
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, b)
	}
	return broadcasts, rows.Err()
}

// ClaimBroadcast atomically transitions scheduled -> processing. The
// status guard is the claim: a broadcast already processing cannot be
// claimed again, so two overlapping dispatch runs never share one.
func (s *Store) ClaimBroadcast(ctx context.Context, id int64) error {
	query := `UPDATE broadcasts SET status = 'processing', started_at = NOW()
		WHERE id = $1 AND status = 'scheduled'`
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("claim broadcast: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyClaimed
	}
	return nil
}

// FinishBroadcast records the terminal status and final counters.
func (s *Store) FinishBroadcast(ctx context.Context, id int64, status domain.BroadcastStatus, sent, errs int) error {
	query := `UPDATE broadcasts
		SET status = $2, sent_count = $3, error_count = $4, finished_at = NOW()
		WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, status, sent, errs); err != nil {
		return fmt.Errorf("finish broadcast: %w", err)
	}
	return nil
}

// ResolveAudience expands a broadcast target segment into its recipient
// list. Unknown segment kinds yield an empty audience, not an error:
// rows written by older versions may carry kinds this build no longer
// produces.
func (s *Store) ResolveAudience(ctx context.Context, b *domain.Broadcast) ([]*domain.User, error) {
	base := `SELECT ` + userColumns + ` FROM users WHERE NOT is_blocked`

	switch b.Audience {
	case domain.AudienceAll:
		return s.listUsers(ctx, base+` ORDER BY id`)

	case domain.AudienceSubscribers:
		return s.listUsers(ctx, base+` AND id IN (
			SELECT user_id FROM subscriptions WHERE status = 'active') ORDER BY id`)

	case domain.AudienceNonSubscribers:
		return s.listUsers(ctx, base+` AND id NOT IN (
			SELECT user_id FROM subscriptions WHERE status = 'active') ORDER BY id`)

	case domain.AudienceExpired:
		return s.listUsers(ctx, base+` AND id IN (
			SELECT user_id FROM subscriptions WHERE status = 'expired') ORDER BY id`)

	case domain.AudienceChannel:
		if b.ChannelID == nil {
			return []*domain.User{}, nil
		}
		return s.listUsers(ctx, base+` AND id IN (
			SELECT user_id FROM subscriptions
			WHERE status = 'active' AND channel_id = $1) ORDER BY id`, *b.ChannelID)

	case domain.AudienceNewUsers:
		days := 7
		if b.NewerThanDays != nil {
			days = *b.NewerThanDays
		}
		cutoff := time.Now().AddDate(0, 0, -days)
		return s.listUsers(ctx, base+` AND created_at >= $1 ORDER BY id`, cutoff)
	}

	slog.Warn("unknown broadcast audience, resolving to nobody",
		"broadcast_id", b.ID, "audience", b.Audience)
	return []*domain.User{}, nil
}

// DeleteOldBroadcasts removes finished broadcasts older than the
// retention cutoff.
func (s *Store) DeleteOldBroadcasts(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM broadcasts
		WHERE status IN ('completed', 'failed') AND finished_at < $1`
	tag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete old broadcasts: %w", err)
	}
	return tag.RowsAffected(), nil
}
